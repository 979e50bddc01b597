// Package cloud provides unit tests for the HTTP client.
package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHTTPClient_uploadContent verifies request shape and ack decoding.
func TestHTTPClient_uploadContent(t *testing.T) {
	var gotPath, gotAuth, gotMethod string
	var gotBody ContentUpload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(UploadAck{ID: "n1", ServerVersion: 3, Timestamp: 12345})
	}))
	defer server.Close()

	client := NewHTTPClient(&Config{BaseURL: server.URL})

	ack, err := client.UploadContent(context.Background(), "secret-token", ContentUpload{
		ID: "n1", Type: "TEXT", Content: "hello", LastUpdated: 2000,
	})
	if err != nil {
		t.Fatalf("UploadContent failed: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/content" {
		t.Errorf("request = %s %s, want POST /content", gotMethod, gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth = %q, want Bearer secret-token", gotAuth)
	}
	if gotBody.Content != "hello" {
		t.Errorf("body content = %q, want hello", gotBody.Content)
	}
	if ack.ServerVersion != 3 || ack.Timestamp != 12345 {
		t.Errorf("ack = %+v, want version 3 / timestamp 12345", ack)
	}
}

// TestHTTPClient_changesQuery verifies the since parameter.
func TestHTTPClient_changesQuery(t *testing.T) {
	var gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(ContentChangesResponse{LastTimestamp: 99})
	}))
	defer server.Close()

	client := NewHTTPClient(&Config{BaseURL: server.URL})

	resp, err := client.GetContentChanges(context.Background(), "tok", 4242)
	if err != nil {
		t.Fatalf("GetContentChanges failed: %v", err)
	}
	if gotQuery != "since=4242" {
		t.Errorf("query = %q, want since=4242", gotQuery)
	}
	if resp.LastTimestamp != 99 {
		t.Errorf("lastTimestamp = %d, want 99", resp.LastTimestamp)
	}
}

// TestHTTPClient_errorEnvelope verifies typed API errors.
func TestHTTPClient_errorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"VERSION_CONFLICT","message":"stale write"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(&Config{BaseURL: server.URL})

	err := client.DeleteContent(context.Background(), "tok", "n1")
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Code != "VERSION_CONFLICT" {
		t.Errorf("code = %q, want VERSION_CONFLICT", apiErr.Code)
	}
	if apiErr.Message != "stale write" {
		t.Errorf("message = %q, want stale write", apiErr.Message)
	}
	if apiErr.HTTPStatus != http.StatusConflict {
		t.Errorf("status = %d, want 409", apiErr.HTTPStatus)
	}
}

// TestHTTPClient_nonJSONError verifies fallback for bodies without the
// error envelope.
func TestHTTPClient_nonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewHTTPClient(&Config{BaseURL: server.URL})

	err := client.DeleteJournal(context.Background(), "tok", "j1")
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Code != "HTTP_502" {
		t.Errorf("code = %q, want HTTP_502", apiErr.Code)
	}
	if apiErr.HTTPStatus != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apiErr.HTTPStatus)
	}
}

// TestHTTPClient_networkError verifies unreachable hosts fail typed.
func TestHTTPClient_networkError(t *testing.T) {
	// Closed server to force a connection error
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewHTTPClient(&Config{BaseURL: server.URL})

	_, err := client.GetJournalChanges(context.Background(), "tok", 0)
	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("err = %T, want *APIError", err)
	}
	if apiErr.Code != "NETWORK_ERROR" {
		t.Errorf("code = %q, want NETWORK_ERROR", apiErr.Code)
	}
	if apiErr.HTTPStatus != 0 {
		t.Errorf("status = %d, want 0 for transport errors", apiErr.HTTPStatus)
	}
}

// TestHTTPClient_media verifies binary round trips.
func TestHTTPClient_media(t *testing.T) {
	stored := map[string][]byte{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/media/"):]
		switch r.Method {
		case http.MethodPut:
			data := make([]byte, r.ContentLength)
			r.Body.Read(data)
			stored[id] = data
			json.NewEncoder(w).Encode(UploadAck{ID: id, Timestamp: 111})
		case http.MethodGet:
			w.Write(stored[id])
		}
	}))
	defer server.Close()

	client := NewHTTPClient(&Config{BaseURL: server.URL})
	ctx := context.Background()

	ack, err := client.UploadMedia(ctx, "tok", "m1", []byte("payload"))
	if err != nil {
		t.Fatalf("UploadMedia failed: %v", err)
	}
	if ack.Timestamp != 111 {
		t.Errorf("ack timestamp = %d, want 111", ack.Timestamp)
	}

	data, err := client.DownloadMedia(ctx, "tok", "m1")
	if err != nil {
		t.Fatalf("DownloadMedia failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q, want payload", data)
	}
}
