package models

import (
	"math"
	"time"
)

type CandidateError struct {
	CVID    string    `json:"cv_id"`
	Name    string    `json:"name,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Statistics struct {
	StartTime                  time.Time `json:"start_time"`
	EndTime                    time.Time `json:"end_time"`
	DurationSeconds            float64   `json:"duration_seconds"`
	Attempted                  int       `json:"attempted"`
	Succeeded                  int       `json:"succeeded"`
	Failed                     int       `json:"failed"`
	Skipped                    int       `json:"skipped"`
	DocumentsDownloaded        int       `json:"documents_downloaded"`
	AverageSecondsPerCandidate float64   `json:"average_seconds_per_candidate"`
	SuccessRate                float64   `json:"success_rate"`
}

type SessionResults struct {
	DownloadedFiles []string `json:"downloaded_files"`
	CandidateNames  []string `json:"candidate_names"`
	ProcessedCVIDs  []string `json:"processed_cv_ids"`
}

type Resources struct {
	PeakMemoryMB float64 `json:"peak_memory_mb"`
	PageRecycles int     `json:"page_recycles"`
}

// SessionRecord summarises one run of search and download.
type SessionRecord struct {
	ID         string           `json:"session_id"`
	Success    bool             `json:"success"`
	Criteria   SearchCriteria   `json:"criteria"`
	Statistics Statistics       `json:"statistics"`
	Results    SessionResults   `json:"results"`
	Errors     []CandidateError `json:"errors"`
	Resources  Resources        `json:"resources"`
	Error      string           `json:"error,omitempty"`
	SavedAt    *time.Time       `json:"saved_at,omitempty"`
}

func NewSessionRecord(id string, criteria SearchCriteria, start time.Time) *SessionRecord {
	return &SessionRecord{
		ID:         id,
		Criteria:   criteria,
		Statistics: Statistics{StartTime: start},
		Results: SessionResults{
			DownloadedFiles: []string{},
			CandidateNames:  []string{},
			ProcessedCVIDs:  []string{},
		},
		Errors: []CandidateError{},
	}
}

func (s *SessionRecord) RecordSuccess(rec CandidateRecord, path string) {
	s.Statistics.Attempted++
	s.Statistics.Succeeded++
	s.Results.DownloadedFiles = append(s.Results.DownloadedFiles, path)
	s.Results.CandidateNames = append(s.Results.CandidateNames, rec.CandidateInfo.Name)
	s.Results.ProcessedCVIDs = append(s.Results.ProcessedCVIDs, rec.SearchResult.CVID)
	if doc := rec.CandidateInfo.CVDocument; doc != nil && doc.Status == DownloadCompleted {
		s.Statistics.DocumentsDownloaded++
	}
}

func (s *SessionRecord) RecordFailure(res SearchResult, err error, at time.Time) {
	s.Statistics.Attempted++
	s.Statistics.Failed++
	s.Results.ProcessedCVIDs = append(s.Results.ProcessedCVIDs, res.CVID)
	s.Errors = append(s.Errors, CandidateError{
		CVID:    res.CVID,
		Name:    res.Name,
		Message: err.Error(),
		At:      at,
	})
}

func (s *SessionRecord) RecordSkip() {
	s.Statistics.Skipped++
}

// Processed reports whether cvID was attempted in this session.
func (s *SessionRecord) Processed(cvID string) bool {
	for _, id := range s.Results.ProcessedCVIDs {
		if id == cvID {
			return true
		}
	}
	return false
}

// Finish stamps the end time and derives the aggregate statistics.
func (s *SessionRecord) Finish(end time.Time) {
	st := &s.Statistics
	st.EndTime = end
	st.DurationSeconds = round(end.Sub(st.StartTime).Seconds(), 2)
	if st.Attempted > 0 {
		st.AverageSecondsPerCandidate = round(st.DurationSeconds/float64(st.Attempted), 2)
		st.SuccessRate = round(float64(st.Succeeded)/float64(st.Attempted)*100, 1)
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
