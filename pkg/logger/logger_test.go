package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealrecord/pkg/logger"
)

type testMethod struct {
	fn    func(msg string, args ...any)
	level string
}

var (
	LogText         = "Test Log Value"
	CustomFieldName = "Somekey"
	CustomFieldVal  = "SomeVal"
)

type testLogJSON struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
	CustomVal any    `json:"Somekey"`
}

func TestSlogLogger(t *testing.T) {
	buffer := bytes.NewBuffer([]byte{})

	// level needs to be set to debug for log all
	handler := slog.NewJSONHandler(buffer, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := logger.New(handler)

	testMethods := []testMethod{
		{fn: l.Error, level: slog.LevelError.String()},
		{fn: l.Warn, level: slog.LevelWarn.String()},
		{fn: l.Info, level: slog.LevelInfo.String()},
		{fn: l.Debug, level: slog.LevelDebug.String()},
	}

	for _, v := range testMethods {
		t.Run(fmt.Sprintf("testing %s", v.level), func(t *testing.T) {
			buffer.Reset()
			v.fn(LogText, CustomFieldName, CustomFieldVal)

			got := new(testLogJSON)
			require.NoError(t, json.Unmarshal(buffer.Bytes(), got))
			require.Equal(t, v.level, got.Level)
			require.Equal(t, LogText, got.Msg)
			require.Equal(t, CustomFieldVal, got.CustomVal)
		})
	}
}

func TestZerologLogger(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.NewBuild().FromBuffer(buff).Level("debug").Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, 0, buff.Len())

	testMethods := []testMethod{
		{fn: templogger.Error, level: "error"},
		{fn: templogger.Warn, level: "warn"},
		{fn: templogger.Info, level: "info"},
		{fn: templogger.Debug, level: "debug"},
	}

	for _, v := range testMethods {
		t.Run(fmt.Sprintf("testing %s", v.level), func(t *testing.T) {
			buff.Reset()
			v.fn(LogText, CustomFieldName, CustomFieldVal)

			got := new(testLogJSON)
			require.NoError(t, json.Unmarshal(buff.Bytes(), got))
			require.Equal(t, v.level, got.Level)
			require.Equal(t, LogText, got.Message)
			require.Equal(t, CustomFieldVal, got.CustomVal)
		})
	}
}

func TestZerologLogger_levelFilter(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.NewBuild().FromBuffer(buff).Level("warn").Make()
	require.NoError(t, err)

	templogger.Debug("hidden")
	templogger.Info("hidden")
	require.Equal(t, 0, buff.Len())

	templogger.Warn("shown", "err", errors.New("boom"), "dangling")
	require.Contains(t, buff.String(), "shown")
	require.Contains(t, buff.String(), "boom")
	require.Contains(t, buff.String(), "!BADKEY")
}

func TestNop(t *testing.T) {
	require.NotPanics(t, func() {
		logger.Nop().Error("ignored", "k", "v")
	})
}
