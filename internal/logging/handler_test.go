// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ignews-go/internal/metrics"
)

func TestMetricsHandler_CountsWarningsAndErrors(t *testing.T) {
	warn := metrics.LogMessages.WithLabelValues("warn")
	errs := metrics.LogMessages.WithLabelValues("error")
	info := metrics.LogMessages.WithLabelValues("info")
	beforeWarn, beforeErr, beforeInfo := testutil.ToFloat64(warn), testutil.ToFloat64(errs), testutil.ToFloat64(info)

	var buf bytes.Buffer
	logger := slog.New(NewMetricsHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("page generated", "slug", "how-to-code")
	logger.Warn("resolving session", "error", "timeout")
	logger.Error("loading page", "error", "boom")
	logger.Error("loading page", "error", "boom")

	assert.InDelta(t, beforeWarn+1, testutil.ToFloat64(warn), 0.001)
	assert.InDelta(t, beforeErr+2, testutil.ToFloat64(errs), 0.001)
	assert.InDelta(t, beforeInfo, testutil.ToFloat64(info), 0.001)
	assert.Equal(t, 4, strings.Count(buf.String(), "\n"))
}

func TestMetricsHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewMetricsHandlerWithLevel(slog.NewTextHandler(&buf, nil), slog.LevelInfo))

	logger.With("component", "store").WithGroup("page").Info("generated", "slug", "how-to-code")

	out := buf.String()
	assert.Contains(t, out, "component=store")
	assert.Contains(t, out, "page.slug=how-to-code")
}

func TestMetricsHandler_Enabled(t *testing.T) {
	h := NewMetricsHandler(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, h.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, h.Enabled(t.Context(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelInfo, false).Info("server starting", "addr", "localhost:3000")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "server starting", line["msg"])
	assert.Equal(t, "localhost:3000", line["addr"])

	buf.Reset()
	New(&buf, slog.LevelWarn, true).Info("hidden")
	assert.Empty(t, buf.String())
}
