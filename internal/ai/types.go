package ai

// Backend endpoint paths.
const (
	EndpointTranslate          = "/api/translate"
	EndpointAnalyze            = "/api/analyze"
	EndpointSummary            = "/api/summary"
	EndpointTasks              = "/api/tasks"
	EndpointReply              = "/api/reply"
	EndpointAttachmentProcess  = "/api/attachment/process"
	EndpointClassifyThemes     = "/api/classification/themes"
	EndpointCalendarAnalyze    = "/api/calendar/analyze"
	EndpointCalendarSchedule   = "/api/calendar/schedule"
	EndpointRAGAsk             = "/api/rag/ask"
	EndpointDatabaseClearAll   = "/api/database/clear-all"
	EndpointHealth             = "/health"
	defaultScheduleDescription = "Meeting scheduled via SmartMail AI"
)

// Theme count bounds accepted by the classification endpoint.
const (
	MinThemes     = 2
	MaxThemes     = 15
	DefaultThemes = 5
)

// RAG defaults.
const (
	DefaultTopK = 3
)

type translateRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Translation is the result of /api/translate. The translated fields are
// empty when the input was already English.
type Translation struct {
	DetectedLanguage  string `json:"detected_language"`
	SubjectTranslated string `json:"subject_translated,omitempty"`
	MessageTranslated string `json:"message_translated,omitempty"`
	OriginalSubject   string `json:"original_subject,omitempty"`
	OriginalMessage   string `json:"original_message,omitempty"`
}

// SubjectOr returns the translated subject, or fallback when none was produced.
func (t *Translation) SubjectOr(fallback string) string {
	if t != nil && t.SubjectTranslated != "" {
		return t.SubjectTranslated
	}
	return fallback
}

// MessageOr returns the translated message, or fallback when none was produced.
func (t *Translation) MessageOr(fallback string) string {
	if t != nil && t.MessageTranslated != "" {
		return t.MessageTranslated
	}
	return fallback
}

type messageRequest struct {
	Message string `json:"message"`
}

// Urgency is the urgency verdict of a semantic analysis.
type Urgency struct {
	IsUrgent      bool   `json:"is_urgent"`
	Justification string `json:"justification"`
}

// Analysis is the result of /api/analyze.
type Analysis struct {
	MainSubject  string   `json:"main_subject"`
	ShortSummary string   `json:"short_summary"`
	EmailType    string   `json:"email_type"`
	Participants []string `json:"participants"`
	Sentiment    string   `json:"sentiment"`
	Urgency      Urgency  `json:"urgency"`
}

// Summary is the result of /api/summary.
type Summary struct {
	Summary          string   `json:"summary"`
	KeyPoints        []string `json:"key_points"`
	DetectedLanguage string   `json:"detected_language"`
	WasTranslated    bool     `json:"was_translated"`
}

// Task is one action item found in an email.
type Task struct {
	TaskDescription string `json:"task_description"`
	Assignee        string `json:"assignee,omitempty"`
	Deadline        string `json:"deadline,omitempty"`
	Priority        string `json:"priority"`
}

// TaskDetection is the result of /api/tasks.
type TaskDetection struct {
	Tasks     []Task `json:"tasks"`
	TaskCount int    `json:"task_count"`
	HasTasks  bool   `json:"has_tasks"`
}

// Found reports whether at least one task was detected.
func (d *TaskDetection) Found() bool {
	return d != nil && d.HasTasks && len(d.Tasks) > 0
}

// Reply is the result of /api/reply.
type Reply struct {
	Reply            string `json:"reply"`
	Tone             string `json:"tone"`
	DetectedLanguage string `json:"detected_language"`
	WasTranslated    bool   `json:"was_translated"`
}

type attachmentRequest struct {
	FileContentBase64 string `json:"file_content_base64"`
	Filename          string `json:"filename"`
}

// AttachmentMetadata describes a processed file.
type AttachmentMetadata struct {
	Filename     string  `json:"filename,omitempty"`
	SizeKB       float64 `json:"size_kb"`
	MimeType     string  `json:"mime_type"`
	Extension    string  `json:"extension"`
	CreatedDate  string  `json:"created_date,omitempty"`
	ModifiedDate string  `json:"modified_date,omitempty"`
}

// ProcessedDocument is the result of /api/attachment/process.
type ProcessedDocument struct {
	ProcessingSuccessful bool                `json:"processing_successful"`
	Metadata             *AttachmentMetadata `json:"metadata"`
	ExtractedText        string              `json:"extracted_text"`
	TextLength           int                 `json:"text_length"`
}

type classifyRequest struct {
	TextContent string `json:"text_content"`
	NumThemes   int    `json:"num_themes"`
}

// Theme is one topical cluster of a document.
type Theme struct {
	ThemeID            int    `json:"theme_id"`
	Description        string `json:"description"`
	RepresentativeText string `json:"representative_text"`
}

// Classification is the result of /api/classification/themes.
type Classification struct {
	Themes                []Theme `json:"themes"`
	TotalThemes           int     `json:"total_themes"`
	TotalChunks           int     `json:"total_chunks"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

type meetingAnalyzeRequest struct {
	Text string `json:"text"`
}

// ProposedEvent is a meeting slot proposed by the backend.
type ProposedEvent struct {
	Date         string `json:"date"`
	Heure        string `json:"heure"`
	DureeMinutes int    `json:"duree_minutes"`
	Summary      string `json:"summary"`
	Type         string `json:"type,omitempty"`
}

// Slot is a candidate time slot offered when no explicit time was found.
type Slot struct {
	Date  string `json:"date"`
	Heure string `json:"heure"`
}

// MeetingAnalysis is the raw result of /api/calendar/analyze.
type MeetingAnalysis struct {
	Status           string         `json:"status"`
	ProposedEvent    *ProposedEvent `json:"proposed_event,omitempty"`
	Message          string         `json:"message,omitempty"`
	CreneauxProposes []Slot         `json:"creneaux_proposes,omitempty"`
}

type scheduleRequest struct {
	Date         string `json:"date"`
	Heure        string `json:"heure"`
	DureeMinutes int    `json:"duree_minutes"`
	Summary      string `json:"summary"`
	Description  string `json:"description,omitempty"`
}

// ScheduledEvent is the result of /api/calendar/schedule.
type ScheduledEvent struct {
	HTMLLink string `json:"htmlLink"`
}

type ragRequest struct {
	Question        string `json:"question"`
	TextContent     string `json:"text_content"`
	TopK            int    `json:"top_k"`
	ForceRecreate   bool   `json:"force_recreate"`
	ApplyCorrection bool   `json:"apply_correction"`
}

// RAGAnswer is the result of /api/rag/ask.
type RAGAnswer struct {
	Question              string   `json:"question"`
	Answer                string   `json:"answer"`
	RawAnswer             string   `json:"raw_answer,omitempty"`
	ContextChunks         []string `json:"context_chunks"`
	TotalChunks           int      `json:"total_chunks"`
	GenerationTimeSeconds float64  `json:"generation_time_seconds"`
}

// ClearResult is the result of /api/database/clear-all.
type ClearResult struct {
	Message string `json:"message"`
}
