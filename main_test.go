package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moepig/net-conf-gen/generate"
	"github.com/moepig/net-conf-gen/renderer"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts, err := parseFlags([]string{"--template", "access.j2", "--input", "switches.csv"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "access.j2", opts.template)
		assert.Equal(t, "switches.csv", opts.input)
		assert.Equal(t, "./output", opts.output)
		assert.Equal(t, "./templates", opts.templateRoot)
		assert.Equal(t, "hostname", opts.nameField)
		assert.Equal(t, ".cfg", opts.ext)
		assert.Equal(t, rune(0), opts.delimiter)
		assert.Equal(t, generate.PolicyAbort, opts.onRowError)
		assert.Equal(t, slog.LevelInfo, opts.logLevel)
		assert.False(t, opts.templateRootSet)
	})

	t.Run("all flags", func(t *testing.T) {
		opts, err := parseFlags([]string{
			"--template=core.tmpl", "--input", "core.tsv", "--output", "out",
			"--template-root", "tpl", "--name-field", "asset", "--ext", ".conf",
			"--delimiter", "tab", "--on-row-error", "skip", "--log-level", "debug",
		}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "tpl", opts.templateRoot)
		assert.True(t, opts.templateRootSet)
		assert.Equal(t, '\t', opts.delimiter)
		assert.Equal(t, generate.PolicySkip, opts.onRowError)
		assert.Equal(t, slog.LevelDebug, opts.logLevel)
	})

	t.Run("config and interactive modes need no template", func(t *testing.T) {
		opts, err := parseFlags([]string{"--config", "jobs.yaml"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "jobs.yaml", opts.configPath)

		opts, err = parseFlags([]string{"--interactive"}, io.Discard)
		require.NoError(t, err)
		assert.True(t, opts.interactive)
	})

	t.Run("help", func(t *testing.T) {
		var stderr bytes.Buffer
		_, err := parseFlags([]string{"-h"}, &stderr)
		assert.ErrorIs(t, err, pflag.ErrHelp)
		assert.Contains(t, stderr.String(), "--template-root")
	})

	t.Run("usage errors", func(t *testing.T) {
		testCases := []struct {
			name        string
			args        []string
			expectedErr string
		}{
			{"missing template", []string{"--input", "d.csv"}, "--template and --input are required"},
			{"missing input", []string{"--template", "t.j2"}, "--template and --input are required"},
			{"invalid log level", []string{"--config", "j.yaml", "--log-level", "trace"}, "invalid log level 'trace'"},
			{"invalid policy", []string{"--config", "j.yaml", "--on-row-error", "retry"}, "invalid row error policy"},
			{"invalid delimiter", []string{"--config", "j.yaml", "--delimiter", ";;"}, "invalid --delimiter"},
			{"conflicting modes", []string{"--config", "j.yaml", "--interactive"}, "cannot be combined"},
			{"positional argument", []string{"--config", "j.yaml", "extra"}, "unexpected argument: extra"},
			{"unknown flag", []string{"--bogus"}, "unknown flag"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := parseFlags(tc.args, io.Discard)
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErr)
			})
		}
	})
}

func TestRun_Single(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "templates", "access.j2"), "hostname {{hostname}}\ninterface {{iface}}")
	writeFile(t, filepath.Join(dir, "switches.csv"), "hostname,iface\nsw1,Gi0/1\nsw2,Gi0/2\n")
	out := filepath.Join(dir, "out")

	opts, err := parseFlags([]string{
		"--template", "access.j2",
		"--input", filepath.Join(dir, "switches.csv"),
		"--output", out,
		"--template-root", filepath.Join(dir, "templates"),
	}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), &stdout, opts))
	assert.Equal(t, "All configs generated in "+out+"\n", stdout.String())

	data, err := os.ReadFile(filepath.Join(out, "sw2.cfg"))
	require.NoError(t, err)
	assert.Equal(t, "hostname sw2\ninterface Gi0/2", string(data))
}

func TestRun_SingleErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "templates", "access.j2"), "vlan {{ vlan }}")
	writeFile(t, filepath.Join(dir, "switches.csv"), "hostname,vlan\nsw1,10\nsw2\n")

	base := []string{
		"--input", filepath.Join(dir, "switches.csv"),
		"--output", filepath.Join(dir, "out"),
		"--template-root", filepath.Join(dir, "templates"),
	}

	t.Run("missing template", func(t *testing.T) {
		opts, err := parseFlags(append([]string{"--template", "nope.j2"}, base...), io.Discard)
		require.NoError(t, err)

		err = run(context.Background(), io.Discard, opts)
		assert.ErrorIs(t, err, renderer.ErrTemplateNotFound)
	})

	t.Run("skip reports skipped rows", func(t *testing.T) {
		opts, err := parseFlags(append([]string{"--template", "access.j2", "--on-row-error", "skip"}, base...), io.Discard)
		require.NoError(t, err)

		var stdout bytes.Buffer
		require.NoError(t, run(context.Background(), &stdout, opts))
		assert.Contains(t, stdout.String(), "Skipped 1 row(s):")
		assert.Contains(t, stdout.String(), "row at line 3 (sw2)")
		assert.Contains(t, stdout.String(), "All configs generated in")
	})
}

func TestRun_JobFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "templates", "access.j2"), "hostname {{ hostname }}\n")
	writeFile(t, filepath.Join(dir, "templates", "core.tmpl"), "hostname {{ .name }}\n")
	writeFile(t, filepath.Join(dir, "data", "access.csv"), "hostname\nsw1\nsw2\n")
	writeFile(t, filepath.Join(dir, "data", "core.tsv"), "name\tsite\ncore1\ttokyo\n")
	writeFile(t, filepath.Join(dir, "jobs.yaml"), `version: "1.0"
template_root: templates
jobs:
  - name: access
    template: access.j2
    output_dir: out/access
    source:
      path: data/access.csv
  - name: core
    template: core.tmpl
    output_dir: out/core
    naming_field: name
    extension: .txt
    source:
      path: data/core.tsv
`)

	opts, err := parseFlags([]string{"--config", filepath.Join(dir, "jobs.yaml")}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), &stdout, opts))
	assert.Equal(t,
		"All configs generated in "+filepath.Join(dir, "out/access")+"\n"+
			"All configs generated in "+filepath.Join(dir, "out/core")+"\n",
		stdout.String())

	assert.FileExists(t, filepath.Join(dir, "out", "access", "sw1.cfg"))
	assert.FileExists(t, filepath.Join(dir, "out", "access", "sw2.cfg"))
	data, err := os.ReadFile(filepath.Join(dir, "out", "core", "core1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hostname core1\n", string(data))
}
