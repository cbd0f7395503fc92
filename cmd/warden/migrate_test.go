// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/store"
	"github.com/wardenauth/warden/pkg/errutil"
)

type fakeMigrator struct {
	calls  []string
	forced int
	status store.Status
	err    error
	closed bool
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.err }

func (f *fakeMigrator) Force(version int) error {
	f.calls = append(f.calls, "force")
	f.forced = version
	return f.err
}

func (f *fakeMigrator) Status() (store.Status, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}

func (f *fakeMigrator) Close() error { f.closed = true; return nil }

func runMigrate(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()
	requiredEnv(t)

	var gotURL string
	cmd := newMigrateCmd(&MigrateDeps{
		MigratorFactory: func(databaseURL string) (Migrator, error) {
			gotURL = databaseURL
			return m, nil
		},
	})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	if len(m.calls) > 0 {
		assert.Equal(t, "postgres://warden@localhost:5432/warden", gotURL)
		assert.True(t, m.closed, "migrator should be closed")
	}
	return buf.String(), err
}

func TestMigrate_UpByDefault(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runMigrate(t, m)

	require.NoError(t, err)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrate_Down(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runMigrate(t, m, "down")

	require.NoError(t, err)
	assert.Equal(t, []string{"down"}, m.calls)
	assert.Contains(t, out, "rolled back")
}

func TestMigrate_Status(t *testing.T) {
	m := &fakeMigrator{status: store.Status{
		Version: 1,
		Dirty:   true,
		Applied: []uint{1},
		Pending: []uint{999},
	}}
	out, err := runMigrate(t, m, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1 (dirty)")
	assert.Contains(t, out, "Applied: 1")
	assert.Contains(t, out, "000001_")
	assert.Contains(t, out, "Pending: 1")
	assert.Contains(t, out, "  999\n")
}

func TestMigrate_Force(t *testing.T) {
	m := &fakeMigrator{}
	out, err := runMigrate(t, m, "force", "3")

	require.NoError(t, err)
	assert.Equal(t, 3, m.forced)
	assert.Contains(t, out, "Schema version forced to 3")
}

func TestMigrate_ForceRejectsNonNumericVersion(t *testing.T) {
	m := &fakeMigrator{}
	_, err := runMigrate(t, m, "force", "abc")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	assert.Empty(t, m.calls)
}

func TestMigrate_PropagatesMigratorErrors(t *testing.T) {
	m := &fakeMigrator{err: errors.New("dirty database")}
	_, err := runMigrate(t, m)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty database")
}

func TestMigrate_FactoryFailure(t *testing.T) {
	requiredEnv(t)

	cmd := newMigrateCmd(&MigrateDeps{
		MigratorFactory: func(string) (Migrator, error) {
			return nil, errors.New("bad url")
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}
