package inspect

import (
	"context"
	"debug/pe"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/deploy-dll/internal/inspect/petest"
	"github.com/StinkyLord/deploy-dll/internal/model"
)

func writePE(t *testing.T, path string, machine uint16, dlls []string) {
	t.Helper()
	require.NoError(t, petest.Write(path, machine, dlls))
}

func TestNative_Dependencies(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "app.exe")
	writePE(t, bin, pe.IMAGE_FILE_MACHINE_AMD64, []string{"KERNEL32.dll", "libzip.dll", "libgomp-1.dll"})

	deps, err := (&Native{}).Dependencies(context.Background(), bin)
	require.NoError(t, err)

	assert.Equal(t, []string{"kernel32.dll", "libzip.dll", "libgomp-1.dll"}, deps)
}

func TestNative_NoImports(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "static.exe")
	writePE(t, bin, pe.IMAGE_FILE_MACHINE_AMD64, nil)

	deps, err := (&Native{}).Dependencies(context.Background(), bin)
	require.NoError(t, err)

	assert.Empty(t, deps)
}

func TestNative_Format(t *testing.T) {
	dir := t.TempDir()
	x64 := filepath.Join(dir, "x64.dll")
	arm := filepath.Join(dir, "arm64.dll")
	writePE(t, x64, pe.IMAGE_FILE_MACHINE_AMD64, nil)
	writePE(t, arm, pe.IMAGE_FILE_MACHINE_ARM64, nil)

	n := &Native{}
	f1, err := n.Format(context.Background(), x64)
	require.NoError(t, err)
	f2, err := n.Format(context.Background(), arm)
	require.NoError(t, err)

	assert.Equal(t, "pei-x86-64", f1)
	assert.Equal(t, "pei-aarch64-little", f2)
}

func TestNative_NotAPEFile(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "readme.dll")
	require.NoError(t, os.WriteFile(bin, []byte("definitely not a PE image"), 0o644))

	_, err := (&Native{}).Format(context.Background(), bin)

	assert.Equal(t, model.ParseFailure, model.KindOf(err))
}

func TestFormatForMachine(t *testing.T) {
	assert.Equal(t, "pei-i386", FormatForMachine(pe.IMAGE_FILE_MACHINE_I386))
	assert.Equal(t, "pei-unknown-0x01c2", FormatForMachine(0x01c2))
}
