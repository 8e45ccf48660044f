package backend

import (
	"context"
	"encoding/json"
	"errors"
	"imageshare-web/core"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func staticCreds(token string) core.CredentialProvider {
	return core.CredentialFunc(func(context.Context) string { return token })
}

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, staticCreds(token))
}

func TestIssueShare_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/images/42/share" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer secret")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"shareUrl":"https://host/images/42/share/abc123"}`))
	}, "secret")

	shareURL, err := client.IssueShare(context.Background(), "42")
	if err != nil {
		t.Fatalf("IssueShare() failed: %v", err)
	}
	if shareURL != "https://host/images/42/share/abc123" {
		t.Errorf("shareUrl = %q", shareURL)
	}
}

func TestIssueShare_MissingShareURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, "secret")

	if _, err := client.IssueShare(context.Background(), "42"); err == nil {
		t.Error("expected error for response without shareUrl")
	}
}

func TestIssueShare_BackendMessageVerbatim(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		message string
		target  error
	}{
		{"Error field", http.StatusForbidden, `{"error":"You do not own this image"}`, "You do not own this image", core.ErrUnauthorized},
		{"Message field", http.StatusUnauthorized, `{"message":"Token expired"}`, "Token expired", core.ErrUnauthorized},
		{"Plain text", http.StatusNotFound, `no such image`, "Request failed: 404 Not Found - no such image", core.ErrNotFound},
		{"Empty body", http.StatusInternalServerError, ``, "Request failed: 500 Internal Server Error", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}, "secret")

			_, err := client.IssueShare(context.Background(), "42")
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("error %v is not a *StatusError", err)
			}
			if statusErr.Status != tc.status {
				t.Errorf("Status = %d, want %d", statusErr.Status, tc.status)
			}
			if err.Error() != tc.message {
				t.Errorf("Message = %q, want %q", err.Error(), tc.message)
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Errorf("error does not wrap %v", tc.target)
			}
		})
	}
}

func TestIssueShare_NoRetry(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}, "")

	client.IssueShare(context.Background(), "1")
	if calls != 1 {
		t.Errorf("backend called %d times, want 1", calls)
	}
}

func TestRevokeShare(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/images/42/share" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"message":"Share link revoked"}`))
	}, "secret")

	msg, err := client.RevokeShare(context.Background(), "42")
	if err != nil {
		t.Fatalf("RevokeShare() failed: %v", err)
	}
	if msg != "Share link revoked" {
		t.Errorf("message = %q", msg)
	}
}

func TestRevokeShare_NoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, "secret")

	msg, err := client.RevokeShare(context.Background(), "42")
	if err != nil {
		t.Fatalf("RevokeShare() failed: %v", err)
	}
	if msg == "" {
		t.Error("expected a default message")
	}
}

func TestGetByID_Normalizes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("anonymous request must not carry Authorization")
		}
		w.Write([]byte(`{"_id":"abc","imageUrl":"https://cdn/a.png","title":"A","description":"d","categories":"cat, dog ,","isPublic":"true"}`))
	}, "")

	img, err := client.GetByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if img.ID != "abc" || img.URL != "https://cdn/a.png" || img.Title != "A" || !img.IsPublic {
		t.Errorf("unexpected image %+v", img)
	}
	if len(img.Categories) != 2 || img.Categories[0] != "cat" || img.Categories[1] != "dog" {
		t.Errorf("Categories = %v", img.Categories)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Image not found"}`))
	}, "")

	_, err := client.GetByID(context.Background(), "doesnotexist")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetByID_NullBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}, "")

	_, err := client.GetByID(context.Background(), "x")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetByID_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := NewClient(srv.URL, time.Second, nil)

	_, err := client.GetByID(context.Background(), "x")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Error("transport failure must not be a StatusError")
	}
}

func TestSearch_Query(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "sunset beach" || r.URL.Query().Get("isPublic") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"id":7,"url":"https://cdn/s.png","title":"Sunset"}]`))
	}, "")

	isPublic := true
	images, err := client.Search(context.Background(), core.SearchQuery{Q: "sunset beach", IsPublic: &isPublic})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(images) != 1 || images[0].ID != "7" || images[0].Title != "Sunset" {
		t.Errorf("unexpected images %+v", images)
	}
}

func TestListPublic_NonArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":[]}`))
	}, "")

	images, err := client.ListPublic(context.Background())
	if err != nil {
		t.Fatalf("ListPublic() failed: %v", err)
	}
	if images == nil || len(images) != 0 {
		t.Errorf("expected empty non-nil list, got %v", images)
	}
}

func TestListMine_SendsCredential(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/my" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[]`))
	}, "tok")

	if _, err := client.ListMine(context.Background()); err != nil {
		t.Fatalf("ListMine() failed: %v", err)
	}
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		json.Unmarshal(body, &req)
		if req["email"] != "a@b.c" || req["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"token":"jwt-token","user":{"id":"u1","username":"ann"}}`))
	}, "")

	session, err := client.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	if session.Token != "jwt-token" || session.User == nil || session.User.Username != "ann" {
		t.Errorf("unexpected session %+v", session)
	}

	_, err = client.Login(context.Background(), "a@b.c", "wrong")
	if err == nil || err.Error() != "Invalid credentials" {
		t.Errorf("error = %v, want Invalid credentials", err)
	}
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_id":"u1","username":"ann","email":"a@b.c"}`))
	}, "tok")

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() failed: %v", err)
	}
	if user.ID != "u1" || user.Username != "ann" {
		t.Errorf("unexpected user %+v", user)
	}
}
