package services

import (
	"fmt"
	"strings"
	"time"
)

// analysisPromptTemplate instructs the classifier to return strict JSON.
// The normalizer still tolerates fenced or partially malformed output.
const analysisPromptTemplate = `You are a medical feedback analysis AI. Analyze the following patient feedback and provide a comprehensive analysis in JSON format.

Patient Feedback:
{{feedback_text}}

Visit Details:
- Department: {{department}}
- Doctor: {{doctor_name}}
- Visit Date: {{visit_date}}
- Rating: {{rating}}/5

Please analyze this feedback and return a JSON object with the following structure:

{
    "sentiment": "positive|negative|neutral|mixed",
    "confidence_score": 0.0-1.0,
    "emotions": ["angry", "grateful", "worried", "frustrated", "satisfied"],
    "urgency": {
        "level": "critical|high|medium|low",
        "reason": "explanation of urgency level",
        "flags": ["medical_complications", "severe_pain", "safety_concerns", "harassment"]
    },
    "categories": {
        "primary": "main category name",
        "subcategories": ["category1", "category2"]
    },
    "medical_concerns": {
        "symptoms": ["symptom1", "symptom2"],
        "complications": ["complication1"],
        "treatment_side_effects": ["side_effect1"],
        "medication_issues": ["issue1"]
    },
    "actionable_insights": "What needs follow-up or action",
    "key_points": [
        "Key point 1",
        "Key point 2",
        "Key point 3"
    ]
}

Important guidelines:
1. If the feedback mentions severe pain, medical complications, safety concerns, or harassment, mark urgency as "critical"
2. Be thorough in detecting medical concerns that may need immediate attention
3. Provide specific, actionable insights
4. Return ONLY valid JSON, no additional text or markdown formatting`

// BuildAnalysisPrompt fills the analysis prompt with the feedback details.
func BuildAnalysisPrompt(req *ClassifyRequest) string {
	doctor := req.DoctorName
	if doctor == "" {
		doctor = "Not specified"
	}

	visitDate := "Not specified"
	if !req.VisitDate.IsZero() {
		visitDate = req.VisitDate.Format(time.DateOnly)
	}

	rating := "Not specified"
	if req.Rating >= 1 && req.Rating <= 5 {
		rating = fmt.Sprintf("%d", req.Rating)
	}

	prompt := analysisPromptTemplate
	prompt = strings.ReplaceAll(prompt, "{{feedback_text}}", req.FeedbackText)
	prompt = strings.ReplaceAll(prompt, "{{department}}", req.Department)
	prompt = strings.ReplaceAll(prompt, "{{doctor_name}}", doctor)
	prompt = strings.ReplaceAll(prompt, "{{visit_date}}", visitDate)
	prompt = strings.ReplaceAll(prompt, "{{rating}}", rating)
	return prompt
}
