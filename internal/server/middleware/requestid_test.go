package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestRequestIDSources(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		chi     bool
		want    string
		wantNew bool
	}{
		{name: "client header", header: "batch-42:row.7", want: "batch-42:row.7"},
		{name: "generated", wantNew: true},
		{name: "header with spaces", header: "two words", wantNew: true},
		{name: "header too long", header: strings.Repeat("a", maxRequestIDLength+1), wantNew: true},
		{name: "chi wins", header: "ignored", chi: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			var handler http.Handler = RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))
			if tt.chi {
				handler = chimw.RequestID(handler)
			}

			req := httptest.NewRequest(http.MethodPost, "/v1/match", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			require.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			switch {
			case tt.want != "":
				require.Equal(t, tt.want, seen)
			case tt.wantNew:
				require.Len(t, seen, 36)
			case tt.chi:
				require.NotEqual(t, "ignored", seen)
			}
		})
	}
}
