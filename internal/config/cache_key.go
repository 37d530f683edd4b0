package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptAnswersKey returns the cache key for an attempt's answer hash
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// ExamQuestionsKey returns the cache key for an exam's question list
func (r *CacheKeyStruct) ExamQuestionsKey(examID string) string {
	return fmt.Sprintf("exam:%s:questions", examID)
}

var CacheKey = NewCacheKeyStruct()
