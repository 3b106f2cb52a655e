package leaderboard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codeclub/leetboard/internal/domain/shared"
)

// PayloadVersion - текущая версия схемы полезной нагрузки снапшота.
const PayloadVersion = 1

// MinMembersForSnapshot - минимальный размер группы, для которой
// сохраняются снапшоты. Проверяется вызывающей стороной, не хранилищем.
const MinMembersForSnapshot = 5

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Payload - версионированное содержимое снапшота.
type Payload struct {
	Version     int     `json:"version"`
	Leaderboard []Entry `json:"leaderboard"`
	// Gainers - nil, если данных о приросте нет.
	Gainers []GainerEntry `json:"gainers"`
}

// Snapshot - неизменяемый дневной снимок лидерборда группы.
// Для пары (GroupID, Date) существует не более одного снапшота.
type Snapshot struct {
	GroupID   shared.GroupID
	Date      time.Time
	Payload   Payload
	CreatedAt time.Time
}

// NewSnapshot собирает и валидирует снапшот за день date (UTC).
func NewSnapshot(groupID shared.GroupID, date time.Time, entries []Entry, gainers []GainerEntry) (*Snapshot, error) {
	u := date.UTC()
	s := &Snapshot{
		GroupID: groupID,
		Date:    time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC),
		Payload: Payload{
			Version:     PayloadVersion,
			Leaderboard: entries,
			Gainers:     gainers,
		},
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate проверяет ключ и полезную нагрузку.
func (s *Snapshot) Validate() error {
	if s.GroupID.IsEmpty() {
		return shared.ErrInvalidSnapshot.Wrap(fmt.Errorf("group id: %w", shared.ErrEmptyValue))
	}
	if s.Date.IsZero() {
		return shared.ErrInvalidSnapshot.Wrap(fmt.Errorf("date: %w", shared.ErrEmptyValue))
	}
	return s.Payload.Validate()
}

// Validate проверяет схему полезной нагрузки перед записью:
//   - версия поддерживается;
//   - лидерборд не пуст, счётчики и ranking неотрицательны;
//   - gainers либо nil, либо каждая запись имеет неотрицательные
//     ProblemsGained, CurrentSolved и CurrentRank.
func (p Payload) Validate() error {
	if p.Version != PayloadVersion {
		return shared.ErrUnsupportedVersion.Wrap(fmt.Errorf("version %d", p.Version))
	}
	if len(p.Leaderboard) == 0 {
		return shared.ErrInvalidSnapshot.Wrap(fmt.Errorf("leaderboard: %w", shared.ErrEmptyValue))
	}
	for i, e := range p.Leaderboard {
		if e.Username == "" {
			return shared.ErrInvalidSnapshot.Wrap(fmt.Errorf("leaderboard[%d].username: %w", i, shared.ErrEmptyValue))
		}
		if e.TotalSolved < 0 || e.EasySolved < 0 || e.MediumSolved < 0 || e.HardSolved < 0 ||
			e.Ranking < 0 || e.RankingPoints < 0 {
			return shared.ErrInvalidSnapshot.Wrap(fmt.Errorf("leaderboard[%d] %s: %w", i, e.Username, shared.ErrNegativeValue))
		}
	}
	for i, g := range p.Gainers {
		if g.ProblemsGained < 0 || g.CurrentSolved < 0 || g.CurrentRank < 0 {
			return shared.ErrInvalidSnapshot.Wrap(fmt.Errorf("gainers[%d] %s: %w", i, g.Username, shared.ErrNegativeValue))
		}
	}
	return nil
}

// Encode сериализует полезную нагрузку в JSON после валидации.
func (p Payload) Encode() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

// DecodePayload разбирает и валидирует сохранённую полезную нагрузку.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, shared.ErrInvalidSnapshot.Wrap(err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// Top возвращает первые n записей.
func (s *Snapshot) Top(n int) []Entry {
	if n <= 0 || n > len(s.Payload.Leaderboard) {
		n = len(s.Payload.Leaderboard)
	}
	return s.Payload.Leaderboard[:n]
}
