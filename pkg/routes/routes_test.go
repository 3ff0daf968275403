package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/meterdesk/pkg/routes"
)

func tag(name string, seen *[]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*seen = append(*seen, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestRegisterNestedGroups(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/state", Handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("state"))
			}},
		},
		Middleware: []func(http.Handler) http.Handler{tag("outer", &seen)},
		Children: []routes.Group{{
			Prefix:     "/debug",
			Middleware: []func(http.Handler) http.Handler{tag("inner", &seen)},
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/refresh", Handler: func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte("refresh"))
				}},
			},
		}},
	})

	tests := []struct {
		method   string
		path     string
		wantBody string
		wantSeen []string
	}{
		{"GET", "/state", "state", []string{"outer"}},
		{"POST", "/debug/refresh", "refresh", []string{"outer", "inner"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			seen = nil
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Body.String() != tt.wantBody {
				t.Errorf("body: got %s", rec.Body.String())
			}
			if len(seen) != len(tt.wantSeen) {
				t.Fatalf("middleware: got %v, want %v", seen, tt.wantSeen)
			}
			for i := range seen {
				if seen[i] != tt.wantSeen[i] {
					t.Errorf("middleware order: got %v, want %v", seen, tt.wantSeen)
				}
			}
		})
	}
}

func TestRegisterMethodMismatch(t *testing.T) {
	mux := http.NewServeMux()
	routes.Register(mux, routes.Group{
		Routes: []routes.Route{{Method: "POST", Pattern: "/save", Handler: func(http.ResponseWriter, *http.Request) {}}},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/save", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}
