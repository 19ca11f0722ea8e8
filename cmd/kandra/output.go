package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/blockedby/kandra/internal/models"
)

func printJobs(w io.Writer, list []models.JobPosting) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no offers")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tKIND\tLEVEL\tSALARY\tPROPOSALS\t")
	for _, j := range list {
		fmt.Fprintf(tw, "%s\t%s%s\t%s\t%s\t%s\t%s\t%d\t\n",
			j.ID, j.Title, marks(j), j.Company, j.Kind, j.ExperienceLevel, j.Salary, j.Proposals)
	}
	_ = tw.Flush()
}

func marks(j models.JobPosting) string {
	var m []string
	if j.Bookmarked {
		m = append(m, "★")
	}
	if j.Applied {
		m = append(m, "applied")
	}
	if len(m) == 0 {
		return ""
	}
	return " [" + strings.Join(m, ", ") + "]"
}

func printJob(w io.Writer, j models.JobPosting) {
	fmt.Fprintf(w, "%s%s\n", j.Title, marks(j))
	fmt.Fprintf(w, "%s · %s\n", j.Company, j.Location)
	fmt.Fprintf(w, "kind: %s  level: %s  category: %s\n", j.Kind, j.ExperienceLevel, j.Category)
	if s := j.Salary.String(); s != "" {
		fmt.Fprintf(w, "salary: %s\n", s)
	}
	if len(j.Skills) > 0 {
		fmt.Fprintf(w, "skills: %s\n", strings.Join(j.Skills, ", "))
	}
	if j.PublishedAt != nil {
		fmt.Fprintf(w, "published: %s\n", j.PublishedAt.Format("2006-01-02"))
	}
	if j.Description != "" {
		fmt.Fprintf(w, "\n%s\n", j.Description)
	}
}

func printApplications(w io.Writer, list []models.Application) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no applications")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOFFER\tSTATUS\tSUBMITTED\t")
	for _, a := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", a.ID, offerTitle(a), a.Status, a.SubmittedAt.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func offerTitle(a models.Application) string {
	if a.Job != nil && a.Job.Title != "" {
		return a.Job.Title
	}
	return "#" + a.JobID.String()
}

func printApplication(w io.Writer, a models.Application) {
	fmt.Fprintf(w, "application %s for %s\n", a.ID, offerTitle(a))
	fmt.Fprintf(w, "status: %s  submitted: %s\n", a.Status, a.SubmittedAt.Format("2006-01-02 15:04"))
	if a.ResumeRef != "" {
		fmt.Fprintf(w, "resume: %s\n", a.ResumeRef)
	}
	if a.PortfolioURL != "" {
		fmt.Fprintf(w, "portfolio: %s\n", a.PortfolioURL)
	}
	if a.LinkedInURL != "" {
		fmt.Fprintf(w, "linkedin: %s\n", a.LinkedInURL)
	}
	if a.Motivation != "" {
		fmt.Fprintf(w, "\nmotivation:\n%s\n", a.Motivation)
	}
	fmt.Fprintf(w, "\ncover letter:\n%s\n", a.CoverLetter)
}
