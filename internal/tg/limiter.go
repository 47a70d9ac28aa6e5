package tg

import "sync"

// StudyLimiter сериализует записи зеркала по исследованию: правка после
// подписи и правка после прикрепления голоса не перетирают друг друга —
// каждая перечитывает снапшот уже под замком.
type StudyLimiter struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
}

func NewStudyLimiter() *StudyLimiter {
	return &StudyLimiter{byID: make(map[int64]*sync.Mutex)}
}

func (l *StudyLimiter) Lock(studyID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[studyID]
	if !ok {
		m = &sync.Mutex{}
		l.byID[studyID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() { m.Unlock() }
}
