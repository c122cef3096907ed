package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "users.db")
	base := []string{"-backend", "sqlite", "-db", db}

	t.Run("creates user from flags", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		args := append([]string{"-email", "Admin@Example.com", "-username", "admin", "-password", "pw", "-role", "admin"}, base...)
		require.NoError(t, run(args, strings.NewReader(""), &stdout, &stderr))
		assert.Contains(t, stdout.String(), "User admin@example.com (admin) created")
	})

	t.Run("refuses duplicates", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		args := append([]string{"-email", "admin@example.com", "-username", "other", "-password", "pw"}, base...)
		err := run(args, strings.NewReader(""), &stdout, &stderr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("reads password from stdin", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		args := append([]string{"-email", "ann@example.com", "-username", "ann"}, base...)
		require.NoError(t, run(args, strings.NewReader("secret\n"), &stdout, &stderr))
		assert.Contains(t, stdout.String(), "Password: ")
		assert.Contains(t, stdout.String(), "User ann@example.com (user) created")
	})
}

func TestRun_Rejects(t *testing.T) {
	db := filepath.Join(t.TempDir(), "users.db")

	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{"missing flags", []string{"-email", "a@b.co"}, "", "missing required flags"},
		{"empty password", []string{"-email", "a@b.co", "-username", "a", "-backend", "sqlite", "-db", db}, "\n", "password cannot be empty"},
		{"bad role", []string{"-email", "a@b.co", "-username", "a", "-password", "pw", "-role", "root", "-backend", "sqlite", "-db", db}, "", "role"},
		{"memory backend", []string{"-email", "a@b.co", "-username", "a", "-password", "pw", "-backend", "memory"}, "", "does not persist"},
		{"unknown backend", []string{"-email", "a@b.co", "-username", "a", "-password", "pw", "-backend", "csv"}, "", "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, strings.NewReader(tt.stdin), &stdout, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
