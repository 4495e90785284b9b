// Package prompt assembles the tutor prompt from learner context, retrieved
// material excerpts and the current question. Section order is fixed and a
// header is only ever emitted with content beneath it.
package prompt

import (
	"fmt"
	"strings"

	"course-tutor/internal/models"
)

const (
	learningProfileHeader = "## Learning Profile"
	academicHeader        = "## Academic Background"
	historyHeader         = "## Prior Conversation"
	materialsHeader       = "## Course Materials"
	questionHeader        = "## Current Question"
)

// Defaults used when the learner has no stored preferences. Mid-scale on
// every dimension, moderate pace, intermediate experience.
var defaultPreferences = models.LearnerPreferences{
	Visual:     0.5,
	Verbal:     0.5,
	Active:     0.5,
	Reflective: 0.5,
	Sequential: 0.5,
	Global:     0.5,
	Pace:       "moderate",
	Experience: "intermediate",
}

// Compose renders the full prompt. The learning profile and the current
// question are always present; the other sections appear only when they have
// content.
func Compose(uctx models.UserContext, userMessage string, excerpts []models.Excerpt) string {
	var sections []string

	sections = append(sections, learningProfileSection(uctx.Preferences))
	if s := academicSection(uctx.Profile); s != "" {
		sections = append(sections, s)
	}
	if s := historySection(uctx.History); s != "" {
		sections = append(sections, s)
	}
	if s := materialsSection(excerpts); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, questionHeader+"\n"+userMessage)

	return strings.Join(sections, models.ContextSeparator)
}

func learningProfileSection(prefs *models.LearnerPreferences) string {
	p := defaultPreferences
	if prefs != nil {
		p = *prefs
	}
	var b strings.Builder
	b.WriteString(learningProfileHeader + "\n")
	fmt.Fprintf(&b, "Visual: %.2f, Verbal: %.2f\n", p.Visual, p.Verbal)
	fmt.Fprintf(&b, "Active: %.2f, Reflective: %.2f\n", p.Active, p.Reflective)
	fmt.Fprintf(&b, "Sequential: %.2f, Global: %.2f\n", p.Sequential, p.Global)
	fmt.Fprintf(&b, "Pace: %s, Experience: %s", p.Pace, p.Experience)
	return b.String()
}

func academicSection(profile *models.AcademicProfile) string {
	if profile == nil {
		return ""
	}
	var lines []string
	if len(profile.DegreeLevels) > 0 {
		lines = append(lines, "Degree: "+strings.Join(profile.DegreeLevels, ", "))
	}
	if profile.SemesterType != "" {
		lines = append(lines, fmt.Sprintf("Semester: %s %d", profile.SemesterType, profile.SemesterNumber))
	}
	if len(profile.Subjects) > 0 {
		lines = append(lines, "Subjects: "+strings.Join(profile.Subjects, ", "))
	}
	if len(lines) == 0 {
		return ""
	}
	return academicHeader + "\n" + strings.Join(lines, "\n")
}

func historySection(history []models.ChatMessage) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(historyHeader)
	for _, msg := range history {
		label := "Student"
		if msg.Role == "assistant" {
			label = "Tutor"
		}
		fmt.Fprintf(&b, "\n%s: %s", label, msg.Content)
	}
	return b.String()
}

func materialsSection(excerpts []models.Excerpt) string {
	if len(excerpts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(materialsHeader)
	for _, ex := range excerpts {
		fmt.Fprintf(&b, "\n### %s\n%s", ex.Name, ex.Excerpt)
	}
	return b.String()
}
