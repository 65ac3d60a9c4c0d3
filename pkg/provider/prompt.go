package provider

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an ATS (Applicant Tracking System) expert. Analyze resumes against job descriptions and respond ONLY with valid JSON, no markdown formatting."

const userPromptFormat = `Analyze this resume against the job description.

RESUME:
%s

JOB DESCRIPTION:
%s

Return ONLY this JSON structure:
{
  "score": <number 0-100>,
  "missingKeywords": [<critical keywords from the job description missing in the resume>],
  "suggestions": [<top 5 specific improvements>],
  "formattingIssues": [<ATS-unfriendly formatting issues>]
}`

func userPrompt(candidate, requirement string) string {
	return fmt.Sprintf(userPromptFormat, candidate, requirement)
}

const optimizeSystemPrompt = "You are a professional resume writer. Return only the optimized resume text, no explanations."

const optimizePromptFormat = `Optimize this resume for ATS systems.

RESUME:
%s

JOB DESCRIPTION:
%s

KEYWORDS TO ADD:
%s

Rules:
1. Incorporate the keywords naturally where relevant
2. Keep all original achievements and experience, remove nothing
3. Remove ATS-unfriendly formatting (tables, columns, graphics references)
4. Use standard section headers (Summary, Experience, Education, Skills)
5. Do not fabricate experience or skills
6. Keep the same structure and length

Return ONLY the optimized resume text, ready to copy-paste.`

func optimizePrompt(candidate, requirement string, missing []string) string {
	keywords := strings.Join(missing, ", ")
	if keywords == "" {
		keywords = "relevant skills"
	}
	return fmt.Sprintf(optimizePromptFormat, candidate, requirement, keywords)
}
