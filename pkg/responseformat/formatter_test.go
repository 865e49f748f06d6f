package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	DayType string `json:"day_type"`
	Count   int    `json:"count"`
}

func TestWriteResponseFormats(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		accept      string
		contentType string
	}{
		{"default json", "/api/aggregates", "", ContentTypeJSON},
		{"unknown format falls back to json", "/api/aggregates?format=xml", "", ContentTypeJSON},
		{"msgpack query", "/api/aggregates?format=msgpack", "", ContentTypeMsgPack},
		{"msgpack accept header", "/api/aggregates", ContentTypeMsgPack, ContentTypeMsgPack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()

			in := payload{DayType: "Weekend", Count: 2}
			if err := NewFormatter().WriteResponse(rec, req, in, map[string]string{"Cache-Control": "no-store"}); err != nil {
				t.Fatalf("WriteResponse: %v", err)
			}

			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, expected %q", got, tt.contentType)
			}
			if got := rec.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %q, expected %q", got, "no-store")
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, expected *", got)
			}

			var out payload
			var err error
			if tt.contentType == ContentTypeMsgPack {
				dec := msgpack.NewDecoder(rec.Body)
				dec.SetCustomStructTag("json")
				err = dec.Decode(&out)
			} else {
				err = json.NewDecoder(rec.Body).Decode(&out)
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out != in {
				t.Errorf("decoded = %+v, expected %+v", out, in)
			}
		})
	}
}

func TestWriteStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/load", nil)
	rec := httptest.NewRecorder()

	if err := NewFormatter().WriteStatus(rec, req, http.StatusInternalServerError, map[string]string{"error": "boom"}, nil); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected %d", rec.Code, http.StatusInternalServerError)
	}
}
