package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wundergraph/graphql-compiler/pkg/artifact"
	"github.com/wundergraph/graphql-compiler/pkg/artifact/mock_artifact"
)

func TestEmitter(t *testing.T) {
	program := compile(t, `
		query Q { viewer { ...F } }
		fragment F on User { id }`, false)
	query := build(t, program, "Q")
	fragment := build(t, program, "F")

	t.Run("persists operations before writing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		persister := mock_artifact.NewMockPersister(ctrl)
		writer := mock_artifact.NewMockWriter(ctrl)

		persister.EXPECT().Persist(gomock.Any(), "Q", query.Text).Return("id-1", nil)
		writer.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a artifact.Artifact) error {
			switch a.Name.String() {
			case "Q":
				assert.Equal(t, "id-1", gjson.GetBytes(a.Body, "id").String())
			case "F":
				assert.False(t, gjson.GetBytes(a.Body, "id").Exists())
			}
			return nil
		}).Times(2)
		writer.EXPECT().Delete(gomock.Any(), "Old").Return(nil)

		emitter := artifact.NewEmitter(writer, 2, artifact.WithPersister(persister))
		results := emitter.Emit(context.Background(), []artifact.Artifact{query, fragment}, []string{"Old"})
		require.Len(t, results, 3)
		for _, result := range results {
			assert.NoError(t, result.Err)
		}
		assert.Equal(t, "Q", results[0].Name)
		assert.Equal(t, "id-1", gjson.GetBytes(results[0].Artifact.Body, "id").String())
		assert.True(t, results[2].Deleted)
	})

	t.Run("failures are per artifact", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		persister := mock_artifact.NewMockPersister(ctrl)
		writer := mock_artifact.NewMockWriter(ctrl)

		persister.EXPECT().Persist(gomock.Any(), "Q", gomock.Any()).Return("", errors.New("unavailable"))
		writer.EXPECT().Write(gomock.Any(), gomock.Any()).Return(nil)

		results := artifact.NewEmitter(writer, 1, artifact.WithPersister(persister)).
			Emit(context.Background(), []artifact.Artifact{query, fragment}, nil)
		require.Len(t, results, 2)
		assert.Error(t, results[0].Err)
		assert.NoError(t, results[1].Err)
	})
}

func TestFSWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated")
	writer := artifact.NewFSWriter(dir)
	a := build(t, compile(t, `query Q { viewer { id } }`, false), "Q")

	require.NoError(t, writer.Write(context.Background(), a))
	data, err := os.ReadFile(filepath.Join(dir, "Q.graphql.json"))
	require.NoError(t, err)
	assert.Equal(t, a.Body, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	require.NoError(t, writer.Delete(context.Background(), "Q"))
	_, err = os.Stat(writer.Path("Q"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, writer.Delete(context.Background(), "Q"))
}
