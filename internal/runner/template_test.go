package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/nestpack/nestpack/apis/v1"
)

func TestBuildVariables(t *testing.T) {
	job := v1.PackJob{Metadata: v1.Metadata{Name: "test-job"}}

	t.Run("built-in variables are set", func(t *testing.T) {
		variables, err := BuildVariables(job, nil)
		require.NoError(t, err)

		assert.Equal(t, "test-job", variables["JOB_NAME"])

		_, err = time.Parse(ISO8601Basic, variables["JOB_DATE_ISO8601"])
		require.NoError(t, err)
		_, err = time.Parse(time.RFC3339, variables["JOB_DATE_RFC3339"])
		require.NoError(t, err)
	})

	t.Run("allowed env variables are included", func(t *testing.T) {
		t.Setenv("PACK_TEST_VAR", "test-value")

		variables, err := BuildVariables(job, []string{"PACK_TEST_VAR"})
		require.NoError(t, err)
		assert.Equal(t, "test-value", variables["PACK_TEST_VAR"])
	})

	t.Run("error when allowed env variable is not set", func(t *testing.T) {
		_, err := BuildVariables(job, []string{"PACK_UNSET_VAR"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PACK_UNSET_VAR")
	})
}

func TestExpand(t *testing.T) {
	variables := map[string]string{"NAME": "bundle"}

	t.Run("expands known variables", func(t *testing.T) {
		got, err := Expand("out/${NAME}.txt", variables)
		require.NoError(t, err)
		assert.Equal(t, "out/bundle.txt", got)
	})

	t.Run("rejects unknown variables", func(t *testing.T) {
		_, err := Expand("${SECRET}", variables)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SECRET")
	})
}

func TestExpandTemplates_PackJob(t *testing.T) {
	content := "release ${VERSION}"
	job := v1.PackJob{
		Kind:     "PackJob",
		Metadata: v1.Metadata{Name: "release"},
		Spec: v1.PackJobSpec{
			Options: v1.OptionsSpec{RelativePath: "/out/${VERSION}"},
			Steps: []v1.Step{
				{
					Archive: &v1.ArchiveStep{
						Path: "bundle-${VERSION}",
						Steps: []v1.Step{
							{Write: &v1.WriteStep{Path: "notes-${VERSION}.txt", Content: &content}},
						},
					},
				},
			},
		},
	}

	err := ExpandTemplates(&job, map[string]string{"VERSION": "1.2.3"})
	require.NoError(t, err)

	assert.Equal(t, "/out/1.2.3", job.Spec.Options.RelativePath)
	assert.Equal(t, "bundle-1.2.3", job.Spec.Steps[0].Archive.Path)
	nested := job.Spec.Steps[0].Archive.Steps[0].Write
	assert.Equal(t, "notes-1.2.3.txt", nested.Path)
	assert.Equal(t, "release 1.2.3", *nested.Content)

	// untagged fields are left alone
	assert.Equal(t, "PackJob", job.Kind)
}
