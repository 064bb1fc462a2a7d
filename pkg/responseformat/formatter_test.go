package responseformat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	RunID string  `json:"run_id"`
	Total int     `json:"total"`
	Limit float64 `json:"mass_limit"`
}

func TestWriteResponse(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		accept      string
		contentType string
	}{
		{name: "default json", target: "/runs", contentType: contentTypeJSON},
		{name: "format param", target: "/runs?format=msgpack", contentType: contentTypeMsgPack},
		{name: "accept header", target: "/runs", accept: contentTypeMsgPack, contentType: contentTypeMsgPack},
		{name: "unknown format", target: "/runs?format=xml", contentType: contentTypeJSON},
	}

	want := payload{RunID: "abc", Total: 3, Limit: 10.5}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rr := httptest.NewRecorder()

			if err := NewFormatter().WriteResponse(rr, req, want, map[string]string{"X-Run": "abc"}); err != nil {
				t.Fatalf("WriteResponse: %v", err)
			}

			if rr.Code != http.StatusOK {
				t.Errorf("status = %d", rr.Code)
			}
			if got := rr.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %s, expected %s", got, tt.contentType)
			}
			if rr.Header().Get("X-Run") != "abc" || rr.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Errorf("missing headers: %v", rr.Header())
			}

			var got payload
			var err error
			if tt.contentType == contentTypeMsgPack {
				dec := msgpack.NewDecoder(rr.Body)
				dec.SetCustomStructTag("json")
				err = dec.Decode(&got)
			} else {
				err = json.NewDecoder(rr.Body).Decode(&got)
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != want {
				t.Errorf("body = %+v, expected %+v", got, want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs/nope", nil)

	if err := NewFormatter().WriteError(rr, req, http.StatusBadRequest, errors.New("invalid run id"), "expected a UUID"); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}

	var body ErrorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invalid run id" || body.Message != "expected a UUID" {
		t.Errorf("unexpected body %+v", body)
	}
}
