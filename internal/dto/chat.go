package dto

// QuestionRequest is the chat endpoint payload.
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// AnswerResponse wraps the natural-language answer.
type AnswerResponse struct {
	Answer string `json:"answer"`
}
