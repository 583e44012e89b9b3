package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BROWN1213/picknic/internal/models"

	"gorm.io/gorm"
)

// fakeLedger is an in-memory stand-in for the Postgres poll repository.
// It enforces the same (poll, user) uniqueness the real constraint does.
type fakeLedger struct {
	mu           sync.Mutex
	polls        map[uint]*models.Poll
	records      map[uint][]models.VoteRecord
	nextPollID   uint
	nextOptionID uint
	nextRecordID uint
	castCalls    int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		polls:   make(map[uint]*models.Poll),
		records: make(map[uint][]models.VoteRecord),
	}
}

func (f *fakeLedger) addPoll(title string, optionTexts ...string) *models.Poll {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPollID++
	poll := &models.Poll{
		ID:        f.nextPollID,
		Title:     title,
		CreatorID: "creator@example.com",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	for _, text := range optionTexts {
		f.nextOptionID++
		poll.Options = append(poll.Options, models.Option{
			ID:     f.nextOptionID,
			PollID: poll.ID,
			Text:   text,
		})
	}
	f.polls[poll.ID] = poll
	return poll
}

func (f *fakeLedger) Create(ctx context.Context, poll *models.Poll) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPollID++
	poll.ID = f.nextPollID
	poll.CreatedAt = time.Now()
	for i := range poll.Options {
		f.nextOptionID++
		poll.Options[i].ID = f.nextOptionID
		poll.Options[i].PollID = poll.ID
	}
	f.polls[poll.ID] = poll
	return nil
}

func (f *fakeLedger) FindByIDWithOptions(ctx context.Context, id uint) (*models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	poll, ok := f.polls[id]
	if !ok {
		return nil, models.ErrPollNotFound
	}
	cp := *poll
	cp.Options = append([]models.Option(nil), poll.Options...)
	return &cp, nil
}

func (f *fakeLedger) FindActive(ctx context.Context, now time.Time) ([]models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Poll
	for _, p := range f.polls {
		if !p.Closed(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindByCreator(ctx context.Context, creatorID string) ([]models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Poll
	for _, p := range f.polls {
		if p.CreatorID == creatorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindAll(ctx context.Context) ([]models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Poll, 0, len(f.polls))
	for _, p := range f.polls {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedger) FindHot(ctx context.Context, minVotes int) ([]models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Poll
	for _, p := range f.polls {
		if p.TotalVotes > minVotes {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeLedger) Close(ctx context.Context, pollID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	poll, ok := f.polls[pollID]
	if !ok {
		return models.ErrPollNotFound
	}
	poll.IsActive = false
	return nil
}

func (f *fakeLedger) UpdateCategory(ctx context.Context, pollID uint, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	poll, ok := f.polls[pollID]
	if !ok {
		return models.ErrPollNotFound
	}
	poll.Category = category
	return nil
}

func (f *fakeLedger) SetOptionVotes(ctx context.Context, pollID uint, counts []models.OptionVoteCount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	poll, ok := f.polls[pollID]
	if !ok {
		return models.ErrPollNotFound
	}
	total := 0
	for _, c := range counts {
		found := false
		for i := range poll.Options {
			if poll.Options[i].ID == c.OptionID {
				poll.Options[i].VoteCount = c.VoteCount
				found = true
				break
			}
		}
		if !found {
			return models.ErrOptionNotFound
		}
		total += c.VoteCount
	}
	poll.TotalVotes = total
	return nil
}

func (f *fakeLedger) CountPolls(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.polls)), nil
}

func (f *fakeLedger) CastVote(ctx context.Context, pollID uint, userID string, optionID uint) (*models.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.castCalls++

	poll, ok := f.polls[pollID]
	if !ok {
		return nil, models.ErrPollNotFound
	}
	if poll.Closed(time.Now()) {
		return nil, models.ErrPollClosed
	}

	var option *models.Option
	for i := range poll.Options {
		if poll.Options[i].ID == optionID {
			option = &poll.Options[i]
			break
		}
	}
	if option == nil {
		return nil, models.ErrOptionNotFound
	}

	for _, rec := range f.records[pollID] {
		if rec.UserID == userID {
			return nil, models.ErrAlreadyVoted
		}
	}

	f.nextRecordID++
	rec := models.VoteRecord{
		ID:               f.nextRecordID,
		PollID:           pollID,
		UserID:           userID,
		SelectedOptionID: optionID,
		CreatedAt:        time.Now(),
	}
	f.records[pollID] = append(f.records[pollID], rec)
	option.VoteCount++
	poll.TotalVotes++
	return &rec, nil
}

func (f *fakeLedger) FindVoteRecord(ctx context.Context, pollID uint, userID string) (*models.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records[pollID] {
		if rec.UserID == userID {
			cp := rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) ListVoteRecords(ctx context.Context, pollID uint) ([]models.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.VoteRecord(nil), f.records[pollID]...), nil
}

func (f *fakeLedger) CountVoteRecords(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, recs := range f.records {
		n += int64(len(recs))
	}
	return n, nil
}

func (f *fakeLedger) RecalculatePoll(ctx context.Context, pollID uint) (*models.RecalcStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	poll, ok := f.polls[pollID]
	if !ok {
		return nil, models.ErrPollNotFound
	}

	summary := models.AggregateVoteCounts(f.records[pollID], poll.Options)
	stats := &models.RecalcStats{PollID: pollID}
	for i := range poll.Options {
		poll.Options[i].VoteCount = summary.ByOption[poll.Options[i].ID]
		stats.UpdatedOptions++
	}
	poll.TotalVotes = summary.Total
	stats.TotalVotes = summary.Total
	stats.OrphanedVotes = summary.Orphaned
	return stats, nil
}

func (f *fakeLedger) DeleteVoteRecordsByUsers(ctx context.Context, userIDs []string) ([]uint, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doomed := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		doomed[id] = true
	}

	var affected []uint
	var deleted int64
	for pollID, recs := range f.records {
		var kept []models.VoteRecord
		touched := false
		for _, rec := range recs {
			if doomed[rec.UserID] {
				deleted++
				touched = true
				continue
			}
			kept = append(kept, rec)
		}
		if touched {
			f.records[pollID] = kept
			affected = append(affected, pollID)
		}
	}
	return affected, deleted, nil
}

// fakeUserRepo is an in-memory user repository with a unique email
// constraint and an optional hook fired before every Create, used to
// simulate concurrent provisioning races.
type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	nextID   uint
	onCreate func()
	findErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) add(user models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	f.users[user.Email] = &user
	return &user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[user.Email]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeUserRepo) CountUsers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) FindIneligible(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if !u.IsSystemAccount && !u.EligibleBirthYear() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) DeleteByIDs(ctx context.Context, ids []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doomed := make(map[uint]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	for email, u := range f.users {
		if doomed[u.ID] {
			delete(f.users, email)
		}
	}
	return nil
}

func (f *fakeUserRepo) GetUser(ctx context.Context, id string) (*models.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &models.DirectoryUser{
		IsSystemAccount: user.IsSystemAccount,
		SchoolVerified:  user.SchoolVerified(),
	}, nil
}

// fakeIndex is an in-memory score index. TopMembers orders by descending
// score with descending lexical order on ties, mirroring ZREVRANGE.
type fakeIndex struct {
	mu        sync.Mutex
	scores    map[string]float64
	incrCalls int
	failIncr  bool
	topErr    error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{scores: make(map[string]float64)}
}

func (f *fakeIndex) IncrementScore(ctx context.Context, key, member string, delta float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrCalls++
	if f.failIncr {
		return
	}
	f.scores[member] += delta
}

func (f *fakeIndex) TopMembers(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]string, 0, len(f.scores))
	for m := range f.scores {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if f.scores[members[i]] != f.scores[members[j]] {
			return f.scores[members[i]] > f.scores[members[j]]
		}
		return members[i] > members[j]
	})
	if stop == -1 || stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return members[start : stop+1], nil
}

func (f *fakeIndex) RankOf(ctx context.Context, key, member string) (int64, bool, error) {
	members, err := f.TopMembers(ctx, key, 0, -1)
	if err != nil {
		return 0, false, err
	}
	for i, m := range members {
		if m == member {
			return int64(i), true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeIndex) ScoreOf(ctx context.Context, key, member string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.scores[member]
	return score, ok, nil
}

// fakeCounterStore simulates Redis INCR/EXPIRE with a controllable clock.
type fakeCounterStore struct {
	mu        sync.Mutex
	counts    map[string]int64
	deadlines map[string]time.Time
	now       time.Time
	incrErr   error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{
		counts:    make(map[string]int64),
		deadlines: make(map[string]time.Time),
		now:       time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fakeCounterStore) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if deadline, ok := f.deadlines[key]; ok && !f.now.Before(deadline) {
		delete(f.counts, key)
		delete(f.deadlines, key)
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.counts[key]; !ok {
		return false, nil
	}
	f.deadlines[key] = f.now.Add(ttl)
	return true, nil
}

// fakeLimiter lets tests script the quota outcome directly.
type fakeLimiter struct {
	count int64
	err   error
	calls int
}

func (f *fakeLimiter) Consume(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.count++
	return f.count, nil
}
