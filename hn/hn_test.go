package hn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClientWithBaseURL(server.Client(), server.URL, BreakerConfig{FailureThreshold: 3, Timeout: time.Minute})
	return server, client
}

func TestTopStories_Success(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/topstories.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ids)
	})

	result, err := client.TopStories(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(result, ids[:5]) {
		t.Errorf("expected %v, got %v", ids[:5], result)
	}
}

func TestTopStories_LimitLargerThanAvailable(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]int{1, 2, 3})
	})

	result, err := client.TopStories(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("expected 3 ids, got %d", len(result))
	}
}

func TestTopStories_ServerError(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.TopStories(context.Background(), 10); err == nil {
		t.Error("expected error for server error")
	}
}

func TestTopStories_InvalidJSON(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	if _, err := client.TopStories(context.Background(), 10); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestTopStories_ContextCancellation(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]int{1, 2, 3})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.TopStories(ctx, 10); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestGetItem_Success(t *testing.T) {
	item := Item{
		ID:          12345,
		Title:       "Test Article",
		URL:         "https://example.com",
		Score:       100,
		Descendants: 50,
		By:          "testuser",
		Time:        1700000000,
		Type:        "story",
	}

	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/item/12345.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(item)
	})

	result, err := client.GetItem(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *result != item {
		t.Errorf("expected %+v, got %+v", item, *result)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetItem(context.Background(), 99999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetItem_NullBody(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null\n"))
	})

	_, err := client.GetItem(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetItem_ServerError(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetItem(context.Background(), 12345)
	if err == nil {
		t.Fatal("expected error for server error")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("server error must not be reported as ErrNotFound")
	}
}

func TestGetItem_InvalidJSON(t *testing.T) {
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	if _, err := client.GetItem(context.Background(), 12345); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 3; i++ {
		if _, err := client.GetItem(context.Background(), 1); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := client.GetItem(context.Background(), 1)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open breaker, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 requests to reach the server, got %d", got)
	}
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	var calls atomic.Int32
	_, client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 10; i++ {
		if _, err := client.GetItem(context.Background(), i); !errors.Is(err, ErrNotFound) {
			t.Errorf("call %d: expected ErrNotFound, got %v", i, err)
		}
	}
	if got := calls.Load(); got != 10 {
		t.Errorf("expected 10 requests, got %d", got)
	}
}

func TestNewClient_NilHTTPClient(t *testing.T) {
	if NewClient(nil) == nil {
		t.Fatal("expected non-nil client")
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	client := NewClient(&http.Client{}).(*httpClient)
	if client.baseURL != BaseURL {
		t.Errorf("expected base URL %s, got %s", BaseURL, client.baseURL)
	}
}
