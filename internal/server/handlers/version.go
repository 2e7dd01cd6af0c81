package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/core"
)

// Build metadata, set from main via SetVersionInfo.
var (
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"

	appName          = config.AppName
	reportThresholds = core.DefaultThresholds()
)

// SetVersionInfo records build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	AppVersion = version
	AppCommit = commit
	AppBuildDate = buildDate
}

// SetAppName overrides the reported application name.
func SetAppName(name string) {
	if name != "" {
		appName = name
	}
}

// SetThresholds records the thresholds the match endpoint runs with.
func SetThresholds(t core.Thresholds) {
	reportThresholds = t
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	App          AppInfo      `json:"app"`
	Matching     MatchingInfo `json:"matching"`
	Dependencies DepInfo      `json:"dependencies"`
	Runtime      RuntimeInfo  `json:"runtime"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// MatchingInfo lets callers tell which cascade produced their results.
type MatchingInfo struct {
	Stages     []core.MatchType `json:"stages"`
	Thresholds core.Thresholds  `json:"thresholds"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler reports build, cascade and runtime details.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	deps := crucible.GetVersion()
	resp := VersionResponse{
		App: AppInfo{
			Name:      appName,
			Version:   AppVersion,
			Commit:    AppCommit,
			BuildDate: AppBuildDate,
			GoVersion: runtime.Version(),
		},
		Matching: MatchingInfo{
			Stages:     core.MatchTypes,
			Thresholds: reportThresholds,
		},
		Dependencies: DepInfo{Gofulmen: deps.Gofulmen, Crucible: deps.Crucible},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
