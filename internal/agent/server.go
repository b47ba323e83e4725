package agent

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flotilla-dev/flotilla/internal/config"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/periphery"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// Version is stamped at build time.
var Version = "dev"

// Agent is the periphery daemon.
type Agent struct {
	cfg    *config.Periphery
	log    *logging.Logger
	docker *Docker
	router chi.Router
	server *http.Server
}

// New wires the agent against a docker engine connection.
func New(cfg *config.Periphery, log *logging.Logger, docker *Docker) *Agent {
	a := &Agent{cfg: cfg, log: log, docker: docker}

	r := chi.NewRouter()
	r.Use(a.guard)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, periphery.VersionResponse{Version: Version})
	})
	r.Get("/accounts/{kind}", a.handleAccounts)
	r.Get("/secrets", a.handleSecrets)
	r.Get("/stats/system", a.handleSystemStats)
	r.Get("/stats/basic", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, collectStats().Basic)
	})
	r.Get("/stats/cpu", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, collectStats().CPU)
	})
	r.Get("/stats/disk", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, collectStats().Disk)
	})
	r.Get("/stats/network", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, collectStats().Network)
	})

	r.Post("/container/list", a.handleContainerList)
	r.Post("/container/deploy", a.handleDeploy)
	r.Post("/container/start", a.handleContainerStart)
	r.Post("/container/stop", a.handleContainerStop)
	r.Post("/container/remove", a.handleContainerRemove)
	r.Post("/container/prune", a.handleContainerPrune)

	r.Post("/image/list", a.handleImageList)
	r.Post("/image/prune", a.handleImagePrune)
	r.Post("/network/list", a.handleNetworkList)
	r.Post("/network/prune", a.handleNetworkPrune)

	r.Post("/build/build", a.handleBuild)

	a.router = r
	return a
}

// Handler exposes the router, mostly for tests.
func (a *Agent) Handler() http.Handler { return a.router }

// ListenAndServe starts the agent API.
func (a *Agent) ListenAndServe() error {
	a.server = &http.Server{
		Addr:         a.cfg.ListenAddr,
		Handler:      a.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // builds and pulls are slow
		IdleTimeout:  120 * time.Second,
	}
	a.log.Info("periphery agent listening", "addr", a.cfg.ListenAddr)
	return a.server.ListenAndServe()
}

// Shutdown gracefully stops the agent.
func (a *Agent) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// guard enforces the passkey and, when configured, the caller IP
// allowlist, on every route.
func (a *Agent) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != a.cfg.Passkey {
			writeError(w, http.StatusUnauthorized, "invalid passkey")
			return
		}
		if len(a.cfg.AllowedIPs) > 0 && !a.ipAllowed(r.RemoteAddr) {
			writeError(w, http.StatusForbidden, "requesting ip not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Agent) ipAllowed(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	for _, allowed := range a.cfg.AllowedIPs {
		if host == allowed {
			return true
		}
	}
	return false
}

// ---- handlers ----

func (a *Agent) handleAccounts(w http.ResponseWriter, r *http.Request) {
	var accounts []string
	switch chi.URLParam(r, "kind") {
	case "github":
		accounts = a.cfg.GithubAccounts
	case "docker":
		accounts = a.cfg.DockerAccounts
	default:
		writeError(w, http.StatusBadRequest, "unknown account kind")
		return
	}
	writeJSON(w, http.StatusOK, periphery.AccountsResponse{Accounts: accounts})
}

// handleSecrets lists the names of configured secrets that resolve to a
// value in the agent's environment. Values never leave the host.
func (a *Agent) handleSecrets(w http.ResponseWriter, r *http.Request) {
	available := make([]string, 0, len(a.cfg.SecretNames))
	for _, name := range a.cfg.SecretNames {
		if os.Getenv(name) != "" {
			available = append(available, name)
		}
	}
	writeJSON(w, http.StatusOK, available)
}

func (a *Agent) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, collectStats())
}

func (a *Agent) handleContainerList(w http.ResponseWriter, r *http.Request) {
	containers, err := a.docker.ListContainers(r.Context())
	if err != nil {
		a.log.Error("list containers", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, containers)
}

func (a *Agent) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req periphery.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	if req.Deployment.Name == "" || req.Deployment.Image.Image == "" {
		writeError(w, http.StatusBadRequest, "deployment name and image required")
		return
	}
	writeJSON(w, http.StatusOK, a.deployContainer(r.Context(), req))
}

func (a *Agent) handleContainerStart(w http.ResponseWriter, r *http.Request) {
	var req periphery.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	start := types.Now()
	if err := a.docker.StartContainer(r.Context(), req.Name); err != nil {
		writeJSON(w, http.StatusOK, types.Log{
			Stage: "start container", Stderr: err.Error(),
			StartTs: start, EndTs: types.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, types.SimpleLog("start container", "started "+req.Name))
}

func (a *Agent) handleContainerStop(w http.ResponseWriter, r *http.Request) {
	var req periphery.StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	start := types.Now()
	if err := a.docker.StopContainer(r.Context(), req.Name, req.Signal, req.Time); err != nil {
		writeJSON(w, http.StatusOK, types.Log{
			Stage: "stop container", Stderr: err.Error(),
			StartTs: start, EndTs: types.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, types.SimpleLog("stop container", "stopped "+req.Name))
}

func (a *Agent) handleContainerRemove(w http.ResponseWriter, r *http.Request) {
	var req periphery.StopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	start := types.Now()
	ctx := r.Context()
	if err := a.docker.StopContainer(ctx, req.Name, req.Signal, req.Time); err != nil {
		a.log.Debug("stop before remove", "container", req.Name, "err", err)
	}
	if err := a.docker.RemoveContainer(ctx, req.Name); err != nil {
		writeJSON(w, http.StatusOK, types.Log{
			Stage: "remove container", Stderr: err.Error(),
			StartTs: start, EndTs: types.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, types.SimpleLog("remove container", "removed "+req.Name))
}

func (a *Agent) handleContainerPrune(w http.ResponseWriter, r *http.Request) {
	a.pruneHandler(w, r, "prune containers", a.docker.PruneContainers)
}

func (a *Agent) handleImagePrune(w http.ResponseWriter, r *http.Request) {
	a.pruneHandler(w, r, "prune images", a.docker.PruneImages)
}

func (a *Agent) handleNetworkPrune(w http.ResponseWriter, r *http.Request) {
	a.pruneHandler(w, r, "prune networks", a.docker.PruneNetworks)
}

func (a *Agent) pruneHandler(w http.ResponseWriter, r *http.Request, stage string, prune func(context.Context) (string, error)) {
	start := types.Now()
	report, err := prune(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, types.Log{
			Stage: stage, Stderr: err.Error(),
			StartTs: start, EndTs: types.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, types.SimpleLog(stage, report))
}

func (a *Agent) handleImageList(w http.ResponseWriter, r *http.Request) {
	images, err := a.docker.ListImages(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (a *Agent) handleNetworkList(w http.ResponseWriter, r *http.Request) {
	networks, err := a.docker.ListNetworks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, networks)
}

func (a *Agent) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req periphery.BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return
	}
	if req.Build.Name == "" || req.Build.ImageName == "" {
		writeError(w, http.StatusBadRequest, "build name and image name required")
		return
	}
	if strings.ContainsAny(req.Build.Name, "/\\") {
		writeError(w, http.StatusBadRequest, "build name must not contain path separators")
		return
	}
	writeJSON(w, http.StatusOK, a.runBuild(r.Context(), req.Build))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
