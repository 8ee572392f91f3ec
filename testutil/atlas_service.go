// Package testutil provides an in-process stand-in for the Atlas Explorer
// cloud service, covering the global API, a gateway, and the bucket its
// signed URLs point into, all on one test server.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/MIPS/atlas-explorer-go/apimodels"
	"github.com/evergreen-ci/gimlet"
	"github.com/pkg/errors"
)

// AtlasService simulates the service side of an experiment: credential
// checks, gateway resolution, signed URL issue, uploads, status polling,
// and report generation. Cycle counts are fixed per core type, so tests
// get stable summaries.
type AtlasService struct {
	APIKey  string
	Channel string
	Region  string

	// CoreCycles maps each core type the channel offers to the cycle
	// count its simulations report.
	CoreCycles map[string]int64

	// PollsUntilReady is how many in-progress responses each job gives
	// before reporting completion.
	PollsUntilReady int

	// FailSimulation makes experiment jobs report failure instead of
	// completing.
	FailSimulation bool

	server *httptest.Server

	mu      sync.Mutex
	jobs    map[string]*serviceJob
	objects map[string][]byte
	lastExp string
}

type serviceJob struct {
	uuid       string
	action     string
	core       string
	workloads  []string
	expUUID    string
	reportType string
	polls      int
}

// NewAtlasService starts a service accepting the given credentials. The
// caller owns Close.
func NewAtlasService(apikey, channel, region string) (*AtlasService, error) {
	s := &AtlasService{
		APIKey:          apikey,
		Channel:         channel,
		Region:          region,
		CoreCycles:      map[string]int64{},
		PollsUntilReady: 1,
		jobs:            map[string]*serviceJob{},
		objects:         map[string][]byte{},
	}

	app := gimlet.NewApp()
	app.AddRoute(apimodels.RouteValidateAPIKey).Get().Handler(s.validateAPIKey)
	app.AddRoute(apimodels.RouteUser).Get().Handler(s.userValid)
	app.AddRoute(apimodels.RouteChannelList).Get().Handler(s.channelList)
	app.AddRoute(apimodels.RouteGatewayByChannel).Get().Handler(s.gatewayByChannelRegion)
	app.AddRoute(apimodels.RouteCreateSignedURLs).Post().Handler(s.createSignedURLs)
	app.AddRoute("/status/{uuid}").Get().Handler(s.jobStatus)
	app.AddRoute("/bucket/{key:.*}").Put().Handler(s.putObject)
	app.AddRoute("/bucket/{key:.*}").Get().Handler(s.getObject)

	handler, err := app.Handler()
	if err != nil {
		return nil, errors.Wrap(err, "building service routes")
	}
	s.server = httptest.NewServer(handler)
	return s, nil
}

// URL returns the base URL all of the service's roles answer on.
func (s *AtlasService) URL() string { return s.server.URL }

// Close shuts the server down.
func (s *AtlasService) Close() { s.server.Close() }

func (s *AtlasService) objectURL(uuid, name string) string {
	return fmt.Sprintf("%s/bucket/%s/%s", s.URL(), uuid, name)
}

func (s *AtlasService) authorized(r *http.Request) bool {
	return r.Header.Get(apimodels.APIKeyHeader) == s.APIKey
}

func (s *AtlasService) validateAPIKey(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		gimlet.WriteJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "api key is not recognized"})
		return
	}
	gimlet.WriteJSON(w, apimodels.APIKeyValidation{Valid: true, Owner: "atlas-tester"})
}

func (s *AtlasService) userValid(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		gimlet.WriteJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "api key is not recognized"})
		return
	}
	gimlet.WriteJSON(w, map[string]string{"user": "atlas-tester"})
}

func (s *AtlasService) channelList(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		gimlet.WriteJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "api key is not recognized"})
		return
	}
	gimlet.WriteJSON(w, apimodels.ChannelList{Channels: []apimodels.Channel{{
		Name:    s.Channel,
		Regions: []string{s.Region},
		Cores:   s.coreNames(),
	}}})
}

func (s *AtlasService) gatewayByChannelRegion(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		gimlet.WriteJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "api key is not recognized"})
		return
	}
	if r.Header.Get(apimodels.ChannelHeader) != s.Channel || r.Header.Get(apimodels.RegionHeader) != s.Region {
		gimlet.WriteJSON(w, apimodels.GatewayEndpoint{})
		return
	}
	gimlet.WriteJSON(w, apimodels.GatewayEndpoint{Endpoint: s.URL()})
}

func (s *AtlasService) createSignedURLs(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		gimlet.WriteJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "api key is not recognized"})
		return
	}

	switch r.Header.Get(apimodels.ActionHeader) {
	case apimodels.ActionExperiment:
		s.createExperiment(w, r)
	case apimodels.ActionReport:
		s.createReport(w, r)
	default:
		gimlet.WriteJSONError(w, map[string]string{"error": "unknown action"})
	}
}

func (s *AtlasService) createExperiment(w http.ResponseWriter, r *http.Request) {
	uuid := r.Header.Get(apimodels.ExpUUIDHeader)
	core := r.Header.Get(apimodels.CoreHeader)
	workloads := strings.Split(r.Header.Get(apimodels.WorkloadHeader), ",")

	if uuid == "" {
		gimlet.WriteJSONError(w, map[string]string{"error": "experiment uuid is required"})
		return
	}
	if _, ok := s.CoreCycles[core]; !ok {
		gimlet.WriteJSONError(w, map[string]string{"error": fmt.Sprintf("unknown core type '%s'", core)})
		return
	}

	s.mu.Lock()
	s.jobs[uuid] = &serviceJob{
		uuid:      uuid,
		action:    apimodels.ActionExperiment,
		core:      core,
		workloads: workloads,
	}
	s.lastExp = uuid
	s.mu.Unlock()

	urls := apimodels.ExperimentURLs{
		ConfigURL:    s.objectURL(uuid, "config.json"),
		WorkloadURLs: map[string]string{},
		StatusURL:    fmt.Sprintf("%s/status/%s", s.URL(), uuid),
		PackageURL:   s.objectURL(uuid, "package.zstf"),
	}
	for _, name := range workloads {
		urls.WorkloadURLs[name] = s.objectURL(uuid, "workloads/"+name)
	}
	gimlet.WriteJSON(w, urls)
}

func (s *AtlasService) createReport(w http.ResponseWriter, r *http.Request) {
	config := apimodels.ReportConfig{}
	if err := gimlet.GetJSON(r.Body, &config); err != nil {
		gimlet.WriteJSONError(w, map[string]string{"error": "malformed report config"})
		return
	}
	if !apimodels.ValidReportType(config.ReportType) {
		gimlet.WriteJSONError(w, map[string]string{"error": fmt.Sprintf("unknown report type '%s'", config.ReportType)})
		return
	}

	expUUID := r.Header.Get(apimodels.ExpUUIDHeader)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[expUUID]; !ok {
		gimlet.WriteJSONError(w, map[string]string{"error": fmt.Sprintf("unknown experiment '%s'", expUUID)})
		return
	}
	s.jobs[config.ReportUUID] = &serviceJob{
		uuid:       config.ReportUUID,
		action:     apimodels.ActionReport,
		expUUID:    expUUID,
		reportType: config.ReportType,
	}

	gimlet.WriteJSON(w, apimodels.ReportURLs{
		ConfigURL:  s.objectURL(config.ReportUUID, "report-config.json"),
		StatusURL:  fmt.Sprintf("%s/status/%s", s.URL(), config.ReportUUID),
		TriggerURL: s.objectURL(config.ReportUUID, "trigger.json"),
	})
}

func (s *AtlasService) jobStatus(w http.ResponseWriter, r *http.Request) {
	uuid := gimlet.GetVars(r)["uuid"]

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[uuid]
	if !ok {
		gimlet.WriteJSONResponse(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	}

	job.polls++
	if job.polls <= s.PollsUntilReady {
		gimlet.WriteJSON(w, apimodels.StatusResponse{
			Code:    apimodels.CodeInProgress,
			Message: "results are being generated",
		})
		return
	}

	if job.action == apimodels.ActionExperiment {
		if s.FailSimulation {
			gimlet.WriteJSON(w, apimodels.StatusResponse{
				Code:    apimodels.CodeFailed,
				Message: "simulation failed",
			})
			return
		}
		s.objects[job.uuid+"/package.zstf"] = []byte("ZSTF:" + job.uuid)
		gimlet.WriteJSON(w, apimodels.StatusResponse{
			Code:    apimodels.CodeComplete,
			Message: "simulation complete",
		})
		return
	}

	name, content := s.renderReport(job)
	s.objects[job.uuid+"/reports/"+name] = content
	gimlet.WriteJSON(w, apimodels.StatusResponse{
		Code:    apimodels.CodeComplete,
		Message: job.reportType + " report complete",
		Metadata: &apimodels.StatusMetadata{
			Reports: []apimodels.ReportFile{{
				Name: name,
				URL:  s.objectURL(job.uuid, "reports/"+name),
				Type: apimodels.ReportFileStream,
			}},
		},
	})
}

// renderReport builds the artifact for a finished report job. Callers hold
// the service lock.
func (s *AtlasService) renderReport(job *serviceJob) (string, []byte) {
	core := ""
	if exp, ok := s.jobs[job.expUUID]; ok {
		core = exp.core
	}
	cycles := s.CoreCycles[core]

	if job.reportType != apimodels.ReportSummary {
		return job.reportType + ".txt", []byte(fmt.Sprintf("%s report for %s on %s\n", job.reportType, job.expUUID, core))
	}

	instructions := cycles / 2
	report := apimodels.SummaryReport{
		ReportType:        apimodels.ReportSummary,
		ToolsVersion:      "latest",
		Core:              core,
		TotalCycles:       cycles,
		TotalInstructions: instructions,
		Metrics: map[string]float64{
			"Cycles Per Instruction (CPI)":              float64(cycles) / float64(instructions),
			"Level 1 Instruction Cache (L1ICache) Hits": float64(instructions - 257),
			"Level 1 Data Cache (L1DCache) Hits":        float64(instructions / 3),
			"Branch Mispredictions":                     1042,
			"Level 2 Cache (L2Cache) Misses":            389,
		},
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return "summary.json", out
}

func (s *AtlasService) putObject(w http.ResponseWriter, r *http.Request) {
	key := gimlet.GetVars(r)["key"]
	body, err := io.ReadAll(r.Body)
	if err != nil {
		gimlet.WriteJSONInternalError(w, map[string]string{"error": "reading upload body"})
		return
	}

	s.mu.Lock()
	s.objects[key] = body
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *AtlasService) getObject(w http.ResponseWriter, r *http.Request) {
	key := gimlet.GetVars(r)["key"]

	s.mu.Lock()
	content, ok := s.objects[key]
	s.mu.Unlock()

	if !ok {
		gimlet.WriteJSONResponse(w, http.StatusNotFound, map[string]string{"error": "no such object"})
		return
	}
	gimlet.WriteBinary(w, content)
}

func (s *AtlasService) coreNames() []string {
	names := make([]string, 0, len(s.CoreCycles))
	for name := range s.CoreCycles {
		names = append(names, name)
	}
	return names
}

// Object returns the stored content of a bucket key.
func (s *AtlasService) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[key]
	return content, ok
}

// LastExperimentUUID returns the UUID of the most recently created
// experiment.
func (s *AtlasService) LastExperimentUUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExp
}

// LastExperimentConfig parses the config uploaded for the most recent
// experiment.
func (s *AtlasService) LastExperimentConfig() (*apimodels.ExperimentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.objects[s.lastExp+"/config.json"]
	if !ok {
		return nil, errors.New("no experiment config was uploaded")
	}
	config := &apimodels.ExperimentConfig{}
	if err := json.Unmarshal(content, config); err != nil {
		return nil, errors.Wrap(err, "parsing uploaded experiment config")
	}
	return config, nil
}

// WorkloadUpload returns the uploaded content of one workload binary for
// the most recent experiment.
func (s *AtlasService) WorkloadUpload(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[s.lastExp+"/workloads/"+name]
	return content, ok
}
