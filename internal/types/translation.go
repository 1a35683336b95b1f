package types

type TranslationRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	ContextType    string `json:"context_type,omitempty"` // menu, sign, conversation
	SessionID      string `json:"session_id,omitempty"`
}

type Translation struct {
	TranslatedText  string  `json:"translated_text"`
	OriginalText    string  `json:"original_text,omitempty"`
	CulturalContext string  `json:"cultural_context"`
	Confidence      float64 `json:"confidence"`
}

type TranslationResponse struct {
	Translation
	SessionID string `json:"session_id,omitempty"`
}
