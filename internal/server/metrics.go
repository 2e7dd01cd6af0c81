package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/namelens/orgmatch/internal/config"
	apperrors "github.com/namelens/orgmatch/internal/errors"
	"github.com/namelens/orgmatch/internal/observability"
)

const prometheusContentType = "text/plain; version=0.0.4"

// metricsTransport reaches the exporter on loopback; tests swap it.
var metricsTransport http.RoundTripper = &http.Transport{
	ResponseHeaderTimeout: 5 * time.Second,
	DisableKeepAlives:     true,
}

// MetricsHandler serves the Prometheus exporter's output on the main
// listener so a single port can be scraped.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if observability.PrometheusExporter == nil {
		apperrors.RespondWithError(w, r,
			errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "Metrics exporter not initialized"))
		return
	}

	target := &url.URL{Scheme: "http", Host: fmt.Sprintf("127.0.0.1:%d", exporterPort()), Path: "/metrics"}
	proxy := &httputil.ReverseProxy{
		Transport: metricsTransport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL = target
			pr.Out.Host = target.Host
		},
		ModifyResponse: func(resp *http.Response) error {
			if resp.Header.Get("Content-Type") == "" {
				resp.Header.Set("Content-Type", prometheusContentType)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			envelope, _ := errors.NewErrorEnvelope("EXTERNAL_SERVICE_ERROR", "Prometheus exporter unavailable").
				WithContext(map[string]interface{}{
					"metrics_url":    target.String(),
					"original_error": err.Error(),
				})
			apperrors.RespondWithError(w, r, envelope)
		},
	}
	proxy.ServeHTTP(w, r)
}

func exporterPort() int {
	if port := observability.GetMetricsPort(); port > 0 {
		return port
	}
	if cfg := config.GetConfig(); cfg != nil && cfg.Metrics.Port > 0 {
		return cfg.Metrics.Port
	}
	return observability.DefaultMetricsPort
}
