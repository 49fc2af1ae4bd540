package runner

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readTarGz(t *testing.T, data []byte) map[string]string {
	t.Helper()
	gr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer lo.Must0(gr.Close())

	tr := tar.NewReader(gr)
	found := make(map[string]string)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		found[h.Name] = string(content)
	}
	return found
}

func TestParsePackJob(t *testing.T) {
	t.Run("valid job", func(t *testing.T) {
		job, err := ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: release-bundle
spec:
  options:
    compress_format: tar.gz
    relative_path: /out
  steps:
    - id: readme
      write:
        path: README.md
        content: "hello"
`))
		require.NoError(t, err)
		assert.Equal(t, "release-bundle", job.Metadata.Name)
		require.Len(t, job.Spec.Steps, 1)
		require.NotNil(t, job.Spec.Steps[0].Write)
		assert.Equal(t, "README.md", job.Spec.Steps[0].Write.Path)
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := ParsePackJob([]byte(`
kind: CollectJob
metadata:
  name: x
spec:
  steps:
    - write: {path: a, content: b}
`))
		require.Error(t, err)
	})

	t.Run("no steps", func(t *testing.T) {
		_, err := ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: x
spec:
  steps: []
`))
		require.Error(t, err)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: x
spec:
  options:
    compress_format: rar
  steps:
    - write: {path: a, content: b}
`))
		require.Error(t, err)
	})

	t.Run("write without content", func(t *testing.T) {
		_, err := ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: x
spec:
  steps:
    - write:
        path: a.txt
`))
		require.Error(t, err)
	})
}

func TestRunner_NestedArchiveJob(t *testing.T) {
	job, err := ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: nested
spec:
  options:
    relative_path: /out
  steps:
    - archive:
        path: A
        steps:
          - write: {path: x.txt, content: hi}
          - archive:
              path: B
              steps:
                - write: {path: y.txt, content: yo}
`))
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	r, err := NewWithFs(zap.NewNop(), job, fs)
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	outer := readTarGz(t, lo.Must(afero.ReadFile(fs, "/out/A.tar.gz")))
	require.Len(t, outer, 2)
	assert.Equal(t, "hi", outer["x.txt"])
	require.Contains(t, outer, "B.tar.gz")

	inner := readTarGz(t, []byte(outer["B.tar.gz"]))
	assert.Equal(t, "yo", inner["y.txt"])

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A.tar.gz", entries[0].Name())
}

func TestRunner_DirectWriteAndCopy(t *testing.T) {
	job, err := ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: direct
spec:
  options:
    relative_path: /out
  steps:
    - write: {path: plain.txt, content: plain}
    - copy: {src: plain.txt, dest: mirror/plain.txt}
`))
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	r, err := NewWithFs(zap.NewNop(), job, fs)
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	assert.Equal(t, []byte("plain"), lo.Must(afero.ReadFile(fs, "/out/plain.txt")))
	assert.Equal(t, []byte("plain"), lo.Must(afero.ReadFile(fs, "/out/mirror/plain.txt")))
}

func TestRunner_TemplateExpansionInPaths(t *testing.T) {
	job, err := ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: templated
spec:
  options:
    relative_path: /out
  steps:
    - archive:
        path: ${JOB_NAME}
        steps:
          - write: {path: info.txt, content: "job ${JOB_NAME}"}
`))
	require.NoError(t, err)

	variables, err := BuildVariables(job, nil)
	require.NoError(t, err)
	require.NoError(t, ExpandTemplates(&job, variables))

	fs := afero.NewMemMapFs()
	r, err := NewWithFs(zap.NewNop(), job, fs)
	require.NoError(t, err)
	require.NoError(t, r.Run(t.Context()))

	found := readTarGz(t, lo.Must(afero.ReadFile(fs, "/out/templated.tar.gz")))
	assert.Equal(t, "job templated", found["info.txt"])
}

func TestResolveStepSpec(t *testing.T) {
	t.Run("no type", func(t *testing.T) {
		_, err := ResolveStepSpec(lo.Must(ParsePackJob([]byte(`
kind: PackJob
metadata:
  name: x
spec:
  steps:
    - id: nothing
`))).Spec.Steps[0])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no type specified")
	})
}
