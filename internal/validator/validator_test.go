package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issueboard/server/internal/types"
)

func TestCreateIssue_Valid(t *testing.T) {
	err := CreateIssue(CreateIssueInput{
		Title:    "Fix the bug",
		Status:   types.StatusTodo,
		Priority: types.PriorityMedium,
	})
	assert.NoError(t, err)
}

func TestCreateIssue_EmptyTitle(t *testing.T) {
	err := CreateIssue(CreateIssueInput{Status: types.StatusTodo, Priority: types.PriorityMedium})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "title", verr.Fields[0].Field)
}

func TestCreateIssue_TitleTooLong(t *testing.T) {
	err := CreateIssue(CreateIssueInput{
		Title:    strings.Repeat("a", maxTitleLength+1),
		Status:   types.StatusTodo,
		Priority: types.PriorityMedium,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "title", verr.Fields[0].Field)
}

func TestCreateIssue_DescriptionTooLong(t *testing.T) {
	err := CreateIssue(CreateIssueInput{
		Title:       "T",
		Description: strings.Repeat("a", maxDescriptionLength+1),
		Status:      types.StatusTodo,
		Priority:    types.PriorityMedium,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "description", verr.Fields[0].Field)
}

func TestCreateIssue_InvalidEnums(t *testing.T) {
	err := CreateIssue(CreateIssueInput{
		Title:    "T",
		Status:   types.Status("bogus"),
		Priority: types.Priority("bogus"),
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestUpdateIssue_OnlySuppliedFieldsValidated(t *testing.T) {
	title := "ok"
	err := UpdateIssue(UpdateIssueInput{Title: &title})
	assert.NoError(t, err)
}

func TestUpdateIssue_EmptyIsNoOp(t *testing.T) {
	err := UpdateIssue(UpdateIssueInput{})
	assert.NoError(t, err)
}

func TestUpdateIssue_RejectsInvalidSuppliedStatus(t *testing.T) {
	bad := types.Status("nope")
	err := UpdateIssue(UpdateIssueInput{Status: &bad})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Fields[0].Field)
}
