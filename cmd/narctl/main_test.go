package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, splitCSV(c.in), c.in)
	}
}

func modelFile(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "tiny.bin")
	data := make([]byte, 1<<20)
	for i := range data {
		data[i] = byte(i * 7)
	}
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := buildRootCmd(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionAndGPU(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "narengine 0.1.0\n", out)

	out, err = execute(t, "--json", "version")
	require.NoError(t, err)
	var v map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 1, v["minor"])

	out, err = execute(t, "gpu")
	require.NoError(t, err)
	assert.Contains(t, out, "gpu support:")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := modelFile(t, dir)
	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")

	small := filepath.Join(dir, "small.gguf")
	require.NoError(t, os.WriteFile(small, []byte("GGUF"), 0o644))
	_, err = execute(t, "validate", small)
	require.Error(t, err)

	_, err = execute(t, "validate", filepath.Join(dir, "missing.gguf"))
	require.Error(t, err)
}

func TestModels(t *testing.T) {
	dir := t.TempDir()
	modelFile(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.gguf"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	out, err := execute(t, "--json", "models", "--dir", dir)
	require.NoError(t, err)
	var models []struct {
		ID    string `json:"id"`
		Valid bool   `json:"valid"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models, 2)
	assert.Equal(t, "broken.gguf", models[0].ID)
	assert.False(t, models[0].Valid)
	assert.Equal(t, "tiny.bin", models[1].ID)
	assert.True(t, models[1].Valid)
}

func TestRunJSON(t *testing.T) {
	model := modelFile(t, t.TempDir())
	out, err := execute(t, "--json", "-m", model, "run", "-n", "8", "--top-k", "1", "hello", "there")
	require.NoError(t, err)
	var res struct {
		TokenCount       uint32 `json:"token_count"`
		PromptTokenCount uint32 `json:"prompt_token_count"`
		StopReason       string `json:"stop_reason"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.LessOrEqual(t, res.TokenCount, uint32(8))
	assert.Equal(t, uint32(len("hello there")), res.PromptTokenCount)
	assert.NotEmpty(t, res.StopReason)
}

func TestRunStreamsText(t *testing.T) {
	model := modelFile(t, t.TempDir())
	out, err := execute(t, "-m", model, "run", "-n", "8", "--deterministic", "hi")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestRunWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	model := modelFile(t, dir)
	cfgPath := filepath.Join(dir, "narctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("engine:\n  model_path: "+model+"\n  default_max_tokens: 4\n"), 0o644))
	out, err := execute(t, "--json", "-c", cfgPath, "run", "hi")
	require.NoError(t, err)
	var res struct {
		TokenCount uint32 `json:"token_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.LessOrEqual(t, res.TokenCount, uint32(4))
}

func TestRunMissingModel(t *testing.T) {
	_, err := execute(t, "-m", filepath.Join(t.TempDir(), "none.gguf"), "run", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init engine")
}

func TestBench(t *testing.T) {
	model := modelFile(t, t.TempDir())
	out, err := execute(t, "--json", "-m", model, "bench", "--requests", "6", "--concurrency", "3", "-n", "4")
	require.NoError(t, err)
	var rep benchReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 6, rep.Requests)
	assert.Equal(t, 6, rep.Completed)
	assert.Equal(t, 6, rep.Succeeded)
	assert.LessOrEqual(t, rep.Tokens, uint64(24))

	_, err = execute(t, "-m", model, "bench", "--requests", "0")
	require.Error(t, err)
}

func TestBenchStoppedEarlyReportsCompletedOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := runBench(ctx, &benchFlags{requests: 8, concurrency: 2})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 8, rep.Requests)
	assert.Zero(t, rep.Completed)
	assert.Zero(t, rep.MeanLatency)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServeAndStatus(t *testing.T) {
	dir := t.TempDir()
	model := modelFile(t, dir)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		cmd := buildRootCmd(&out)
		cmd.SetArgs([]string{"--log-level", "error", "-m", model, "serve", "--addr", addr})
		done <- cmd.ExecuteContext(ctx)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/readyz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 20*time.Millisecond)

	out, err := execute(t, "--json", "status", "--addr", addr)
	require.NoError(t, err)
	var st statusView
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "ready", st.Status)
	assert.Equal(t, "tiny", st.ModelName)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, body.String(), "narengine_http_requests_total")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
