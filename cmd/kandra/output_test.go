package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blockedby/kandra/internal/models"
)

func TestPrintJobs(t *testing.T) {
	var buf bytes.Buffer
	printJobs(&buf, nil)
	assert.Equal(t, "no offers\n", buf.String())

	buf.Reset()
	printJobs(&buf, []models.JobPosting{
		{ID: "7", Title: "Go Developer", Company: "Atlas Studio", Kind: models.OfferFullTime, Salary: models.Salary{Text: "45€/h"}, Bookmarked: true, Applied: true},
	})
	out := buf.String()
	assert.Contains(t, out, "Go Developer [★, applied]")
	assert.Contains(t, out, "45€/h")
	assert.Contains(t, out, "full_time")
}

func TestPrintApplications(t *testing.T) {
	var buf bytes.Buffer
	printApplications(&buf, []models.Application{
		{ID: "1", JobID: "9", Status: models.ApplicationInReview},
	})
	assert.Contains(t, buf.String(), "#9")
	assert.Contains(t, buf.String(), "in_review")
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"internship", "freelance"}, splitCSV(" internship, ,freelance "))
	assert.Nil(t, splitCSV(""))
}

func TestCommandsListed(t *testing.T) {
	assert.Len(t, order, len(commands))
	for _, name := range order {
		_, ok := commands[name]
		assert.True(t, ok, name)
	}
}
