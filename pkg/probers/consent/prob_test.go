package consent_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sre-norns/logshare-verify/pkg/prob"
	"github.com/sre-norns/logshare-verify/pkg/probers/consent"
	"github.com/sre-norns/logshare-verify/pkg/runner"
	"github.com/sre-norns/wyrd/pkg/manifest"
	"github.com/stretchr/testify/require"
)

func TestDefaultSpec(t *testing.T) {
	spec := consent.DefaultSpec()

	require.Equal(t, "http://localhost:5173", spec.URL)
	require.Equal(t, 10*time.Second, spec.NavigationTimeout)
	require.Equal(t, "로그 및 데이터 공유 동의", spec.ConsentText)
	require.Equal(t, "동의 및 활성화", spec.AgreeButton)
	require.Equal(t, "설정", spec.SettingsButton)
	require.Equal(t, "로그 및 데이터 공유", spec.SettingsText)
	require.Equal(t, time.Second, spec.ModalCloseDelay)
	require.Equal(t, "consent_modal.png", spec.ConsentScreenshot)
	require.Equal(t, "settings_page.png", spec.SettingsScreenshot)
	require.Equal(t, "error.png", spec.ErrorScreenshot)
	require.Equal(t, "network.har", spec.HarFile)
}

func TestKindRegistered(t *testing.T) {
	probs := prob.ListProbs()
	require.Contains(t, probs, consent.Kind)
	require.Equal(t, consent.ScriptMimeType, probs[consent.Kind].ContentType)

	runFn, ok := prob.FindRunFunc(consent.Kind)
	require.True(t, ok)
	require.NotNil(t, runFn)
}

func TestRunScript_UnexpectedSpec(t *testing.T) {
	status, _, err := consent.RunScript(context.Background(), "not a spec", prob.RunOptions{}, nil, log.NewNopLogger())
	require.ErrorIs(t, err, manifest.ErrUnexpectedSpecType)
	require.Equal(t, prob.RunFinishedError, status)

	status, _, err = consent.RunScript(context.Background(), &consent.Spec{}, prob.RunOptions{}, nil, log.NewNopLogger())
	require.ErrorIs(t, err, prob.ErrNoTarget)
	require.Equal(t, prob.RunFinishedError, status)
}

func TestPlay_ModalPresent(t *testing.T) {
	spec := testSpec()
	page := &fakePage{
		visible: map[string]bool{spec.ConsentText: true, spec.SettingsText: true},
	}
	driver := &fakeDriver{page: page}
	dir := t.TempDir()
	registry := prometheus.NewRegistry()

	status, artifacts, err := prob.Play(context.Background(), prob.Manifest{
		Name:    "log-sharing",
		Kind:    consent.Kind,
		Timeout: time.Minute,
		Spec:    &spec,
	}, prob.RunOptions{
		Browser: prob.BrowserOptions{
			Headless:         true,
			WorkingDirectory: dir,
			Driver:           driver,
		},
	}, registry, log.NewNopLogger())

	require.NoError(t, err)
	require.Equal(t, prob.RunFinishedSuccess, status)
	require.Equal(t, []string{"consent_modal", "settings_page", runner.LogRelType}, rels(artifacts))

	runLog := string(artifacts[len(artifacts)-1].Content)
	require.Contains(t, runLog, "Clicked Agree.")
	require.Equal(t, 1, driver.browser.closed)

	require.Equal(t, float64(1), gatherGauge(t, registry, "verify_consent_modal_present"))
	require.Equal(t, float64(1), gatherGauge(t, registry, "verify_run_success"))
}

func TestPlay_RecordHar(t *testing.T) {
	spec := testSpec()
	page := &fakePage{visible: map[string]bool{spec.SettingsText: true}}
	driver := &fakeDriver{page: page}

	status, artifacts, err := prob.Play(context.Background(), prob.Manifest{Kind: consent.Kind, Spec: &spec}, prob.RunOptions{
		Browser: prob.BrowserOptions{
			RecordHar:        true,
			WorkingDirectory: t.TempDir(),
			Driver:           driver,
		},
	}, prometheus.NewRegistry(), log.NewNopLogger())

	require.NoError(t, err)
	require.Equal(t, prob.RunFinishedSuccess, status)
	require.Equal(t, []string{"settings_page", consent.HarRelType, runner.LogRelType}, rels(artifacts))
}

func TestPlay_Preflight(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	spec := testSpec()
	spec.URL = server.URL
	page := &fakePage{visible: map[string]bool{spec.SettingsText: true}}
	registry := prometheus.NewRegistry()

	status, _, err := prob.Play(context.Background(), prob.Manifest{Kind: consent.Kind, Spec: &spec}, prob.RunOptions{
		Browser:   prob.BrowserOptions{WorkingDirectory: t.TempDir(), Driver: &fakeDriver{page: page}},
		Preflight: prob.PreflightOptions{Enabled: true},
	}, registry, log.NewNopLogger())

	require.NoError(t, err)
	require.Equal(t, prob.RunFinishedSuccess, status)

	count, err := testutil.GatherAndCount(registry, "probe_http_status_code")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestPreflight(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	require.True(t, consent.Preflight(context.Background(), server.URL, prometheus.NewRegistry(), log.NewNopLogger()))

	server.Close()
	require.False(t, consent.Preflight(context.Background(), server.URL, prometheus.NewRegistry(), log.NewNopLogger()))
}

func gatherGauge(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			require.NotEmpty(t, family.GetMetric())
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}

	t.Fatalf("metric %q not found", name)
	return 0
}
