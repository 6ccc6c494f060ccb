package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhil/clashforge/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrVersionConflict is returned when a compare-and-set write loses a
	// race; callers re-read and retry.
	ErrVersionConflict = errors.New("storage: version conflict")
)

// Store is the key-value backend for teams, the membership index,
// tournaments, registrations, the connection registry and user profiles.
type Store struct {
	rdb *redis.Client
}

// Options configure the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewStore connects to redis and verifies the connection.
func NewStore(opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Store{rdb: rdb}, nil
}

// Close releases the redis connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func teamKey(tournamentID, teamID string) string {
	return "team:" + tournamentID + ":" + teamID
}

func teamSetKey(tournamentID string) string {
	return "teams:" + tournamentID
}

func membershipKey(userID, tournamentID string) string {
	return "userteam:" + userID + ":" + tournamentID
}

func tournamentKey(id string) string {
	return "tournament:" + id
}

func registrationKey(tournamentID, playerID string) string {
	return "registration:" + tournamentID + ":" + playerID
}

func connectionKey(id string) string {
	return "conn:" + id
}

func userKey(id string) string {
	return "user:" + id
}

// GetTeam loads one team record.
func (s *Store) GetTeam(ctx context.Context, tournamentID, teamID string) (*models.Team, error) {
	raw, err := s.rdb.Get(ctx, teamKey(tournamentID, teamID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var team models.Team
	if err := json.Unmarshal([]byte(raw), &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateTeam writes a brand-new team record and indexes it under its
// tournament.
func (s *Store) CreateTeam(ctx context.Context, team *models.Team) error {
	payload, err := json.Marshal(team)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, teamKey(team.TournamentID, team.TeamID), payload, 0)
		pipe.SAdd(ctx, teamSetKey(team.TournamentID), team.TeamID)
		return nil
	})
	return err
}

// SaveTeam persists a mutated team record. The write only succeeds when the
// stored Version still matches team.Version; the stored copy then advances
// by one. Concurrent single-role mutations on the same team therefore
// serialize instead of overwriting each other's map update.
func (s *Store) SaveTeam(ctx context.Context, team *models.Team) error {
	key := teamKey(team.TournamentID, team.TeamID)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var current models.Team
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return err
		}
		if current.Version != team.Version {
			return ErrVersionConflict
		}
		next := *team
		next.Version++
		payload, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)
	if err == redis.TxFailedErr {
		return ErrVersionConflict
	}
	return err
}

// DeleteTeam removes the team record and its tournament index entry.
func (s *Store) DeleteTeam(ctx context.Context, tournamentID, teamID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, teamKey(tournamentID, teamID))
		pipe.SRem(ctx, teamSetKey(tournamentID), teamID)
		return nil
	})
	return err
}

// ListTeams returns every team registered under a tournament.
func (s *Store) ListTeams(ctx context.Context, tournamentID string) ([]*models.Team, error) {
	ids, err := s.rdb.SMembers(ctx, teamSetKey(tournamentID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = teamKey(tournamentID, id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	teams := make([]*models.Team, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a record; skip, self-corrects on delete
			continue
		}
		var team models.Team
		if err := json.Unmarshal([]byte(raw), &team); err != nil {
			return nil, err
		}
		teams = append(teams, &team)
	}
	return teams, nil
}

// GetMembership returns the membership index row for (user, tournament), or
// nil when the user is not rostered in that tournament.
func (s *Store) GetMembership(ctx context.Context, userID, tournamentID string) (*models.MembershipRow, error) {
	raw, err := s.rdb.Get(ctx, membershipKey(userID, tournamentID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var row models.MembershipRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// PutMembership writes the membership index row; last writer wins.
func (s *Store) PutMembership(ctx context.Context, row *models.MembershipRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, membershipKey(row.UserID, row.TournamentID), payload, 0).Err()
}

// DeleteMembership removes the membership index row.
func (s *Store) DeleteMembership(ctx context.Context, userID, tournamentID string) error {
	return s.rdb.Del(ctx, membershipKey(userID, tournamentID)).Err()
}

// GetTournament loads one tournament record.
func (s *Store) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	raw, err := s.rdb.Get(ctx, tournamentKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t models.Tournament
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// PutTournament upserts a tournament record.
func (s *Store) PutTournament(ctx context.Context, t *models.Tournament) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, tournamentKey(t.TournamentID), payload, 0).Err()
}

// PutRegistration upserts a registration record.
func (s *Store) PutRegistration(ctx context.Context, reg *models.Registration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, registrationKey(reg.TournamentID, reg.PlayerID), payload, 0).Err()
}

// ListRegistrations returns every registration under a tournament.
func (s *Store) ListRegistrations(ctx context.Context, tournamentID string) ([]*models.Registration, error) {
	var regs []*models.Registration
	iter := s.rdb.Scan(ctx, 0, registrationKey(tournamentID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var reg models.Registration
		if err := json.Unmarshal([]byte(raw), &reg); err != nil {
			return nil, err
		}
		regs = append(regs, &reg)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

// PutConnection registers a live connection with an expiry hint. Expiry is
// a safety net; the usual removal paths are explicit disconnects and
// broadcast-time pruning.
func (s *Store) PutConnection(ctx context.Context, conn *models.Connection, ttl time.Duration) error {
	payload, err := json.Marshal(conn)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, connectionKey(conn.ConnectionID), payload, ttl).Err()
}

// DeleteConnection removes a connection row.
func (s *Store) DeleteConnection(ctx context.Context, connectionID string) error {
	return s.rdb.Del(ctx, connectionKey(connectionID)).Err()
}

// ListConnections enumerates the registry. A full scan is fine here: the
// registry is bounded by concurrently open client sessions.
func (s *Store) ListConnections(ctx context.Context) ([]*models.Connection, error) {
	var conns []*models.Connection
	iter := s.rdb.Scan(ctx, 0, connectionKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.rdb.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var conn models.Connection
		if err := json.Unmarshal([]byte(raw), &conn); err != nil {
			return nil, err
		}
		conns = append(conns, &conn)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return conns, nil
}

// GetDisplayNames resolves stored display names for the given user ids.
// Users without a profile record are simply absent from the result.
func (s *Store) GetDisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = userKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var profile models.UserProfile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			continue
		}
		if profile.DisplayName != "" {
			names[userIDs[i]] = profile.DisplayName
		}
	}
	return names, nil
}
