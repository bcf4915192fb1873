package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleQuizzesAreValid(t *testing.T) {
	quizzes := sampleQuizzes()
	require.NotEmpty(t, quizzes)
	for _, quiz := range quizzes {
		assert.NoError(t, quiz.Validate(), quiz.ID)
	}
	assert.Len(t, sampleQuizzesByID(), len(quizzes))
}

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["start"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	migrate, _, err := cmd.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.NotNil(t, migrate.Flags().Lookup("seed"))
}
