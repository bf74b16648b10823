package launch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindBatch, KindOf("run.bat"))
	assert.Equal(t, KindBatch, KindOf("RUN.CMD"))
	assert.Equal(t, KindShell, KindOf("start.sh"))
	assert.Equal(t, KindUnknown, KindOf("readme.txt"))
	assert.Equal(t, KindUnknown, KindOf("server.jar"))
}

func TestParseScriptBatch(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "run.bat",
		"@echo off\r\n"+
			"REM launcher entry point\r\n"+
			":: ignored too\r\n"+
			"java -Xmx512M -jar Loader.jar -configurl http://www.example-server.com/config.agf\r\n")

	frag, err := ParseScript(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"-Xmx512M"}, frag.JavaArgs)
	assert.Equal(t, filepath.Join(dir, "Loader.jar"), frag.JarPath)
	assert.Equal(t, "http://www.example-server.com/config.agf", frag.ConfigURL)
	assert.Equal(t, dir, frag.WorkDir)
	assert.Empty(t, frag.MainClass)
}

func TestParseScriptBatchDp0(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "start.cmd",
		"@java -Xmx1024M -Dfile.encoding=UTF-8 -jar \"%~dp0server.jar\"\r\n")

	frag, err := ParseScript(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"-Xmx1024M", "-Dfile.encoding=UTF-8"}, frag.JavaArgs)
	assert.Equal(t, filepath.Join(dir, "server.jar"), frag.JarPath)
}

func TestParseScriptShell(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "run.sh",
		"#!/bin/sh\n"+
			"# start the world server\n"+
			"cd \"$(dirname \"$0\")\"\n"+
			"java -Xms256M -Xmx512M -jar \"$(dirname \"$0\")\"/world.jar # foreground\n")

	frag, err := ParseScript(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"-Xms256M", "-Xmx512M"}, frag.JavaArgs)
	assert.Equal(t, filepath.Join(dir, "world.jar"), frag.JarPath)
}

func TestParseScriptClasspathMain(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "run.sh",
		"java -Xmx512M -cp server.jar com.example.Server\n")

	frag, err := ParseScript(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "server.jar"), frag.JarPath)
	assert.Equal(t, "com.example.Server", frag.MainClass)
}

func TestParseScriptNonJavaLinesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "run.bat",
		"echo starting with update.jar\r\n"+
			"pause backup.jar\r\n")

	frag, err := ParseScript(path)
	require.NoError(t, err)
	assert.Empty(t, frag.JarPath)
	assert.False(t, frag.Resolvable())
}

func TestParseScriptUnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "run.ps1", "java -jar server.jar\n")

	_, err := ParseScript(path)
	assert.Error(t, err)
}

func TestFragmentResolvable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.jar"), []byte("pk"), 0o644))

	frag := &Fragment{WorkDir: dir}
	frag.setJar("server.jar")
	assert.True(t, frag.Resolvable())

	frag.setJar("missing.jar")
	assert.False(t, frag.Resolvable())
}

func TestLaunchConfigCommand(t *testing.T) {
	cfg := &LaunchConfig{
		JarPath:   "/srv/game/Loader.jar",
		JavaArgs:  []string{"-Xmx512M"},
		ConfigURL: "http://www.example-server.com/config.agf",
	}
	assert.Equal(t,
		[]string{"java", "-Xmx512M", "-jar", "/srv/game/Loader.jar",
			"-configurl", "http://www.example-server.com/config.agf"},
		cfg.Command("java"))

	cp := &LaunchConfig{
		JarPath:   "/srv/game/server.jar",
		MainClass: "com.example.Server",
	}
	assert.Equal(t,
		[]string{"java", "-cp", "/srv/game/server.jar", "com.example.Server"},
		cp.Command("java"))
}
