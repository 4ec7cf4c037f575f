package models

import (
	"time"
)

// IndexedSession is a session row in the index database.
type IndexedSession struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Keywords   string    `json:"keywords"`
	Location   string    `json:"location"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Success    bool      `json:"success"`
}

// IndexedCandidate is a candidate row in the index database. One row per cv_id;
// re-extraction overwrites it.
type IndexedCandidate struct {
	CVID            string    `json:"cv_id"`
	SessionID       string    `json:"session_id"`
	Name            string    `json:"name"`
	ProfileURL      string    `json:"profile_url"`
	Location        string    `json:"location"`
	CurrentJobTitle string    `json:"current_job_title"`
	Email           string    `json:"email"`
	Completeness    float64   `json:"completeness"`
	FilePath        string    `json:"file_path"`
	ExtractedAt     time.Time `json:"extracted_at"`
}

func NewIndexedSession(s *SessionRecord) IndexedSession {
	return IndexedSession{
		ID:         s.ID,
		StartedAt:  s.Statistics.StartTime,
		FinishedAt: s.Statistics.EndTime,
		Keywords:   s.Criteria.KeywordQuery(),
		Location:   s.Criteria.Location,
		Attempted:  s.Statistics.Attempted,
		Succeeded:  s.Statistics.Succeeded,
		Failed:     s.Statistics.Failed,
		Success:    s.Success,
	}
}

func NewIndexedCandidate(rec CandidateRecord, path string) IndexedCandidate {
	d := rec.CandidateInfo.PersonalJobDetails
	return IndexedCandidate{
		CVID:            rec.SearchResult.CVID,
		SessionID:       rec.Metadata.SessionID,
		Name:            rec.CandidateInfo.Name,
		ProfileURL:      rec.SearchResult.ProfileURL,
		Location:        Deref(d.Location),
		CurrentJobTitle: Deref(d.CurrentJobTitle),
		Email:           Deref(d.Email),
		Completeness:    rec.Metadata.DataCompleteness,
		FilePath:        path,
		ExtractedAt:     rec.Metadata.ExtractionTimestamp,
	}
}
