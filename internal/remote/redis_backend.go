package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps one JSON document per entity plus set indexes:
//
//	<p>:user:<id>           user JSON      <p>:user:email:<email>  id
//	<p>:movie:<id>          movie JSON     <p>:movie:title:<title> id
//	<p>:screening:<id>      screening JSON <p>:movie:<id>:screenings
//	<p>:ticket:<id>         ticket JSON    <p>:screening:<id>:tickets
//	<p>:users <p>:movies <p>:screenings <p>:tickets  id sets
//
// Natural-key uniqueness rides on SETNX of the email and title keys, run
// inside a script together with the document write.
type RedisBackend struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisBackend uses rdb under prefix. The client stays owned by the caller.
func NewRedisBackend(rdb redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "cinema"
	}
	return &RedisBackend{rdb: rdb, prefix: prefix}
}

func (r *RedisBackend) key(parts ...string) string {
	k := r.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (r *RedisBackend) userKey(id string) string      { return r.key("user", id) }
func (r *RedisBackend) emailKey(email string) string  { return r.key("user", "email", email) }
func (r *RedisBackend) movieKey(id string) string     { return r.key("movie", id) }
func (r *RedisBackend) titleKey(title string) string  { return r.key("movie", "title", title) }
func (r *RedisBackend) screeningKey(id string) string { return r.key("screening", id) }
func (r *RedisBackend) ticketKey(id string) string    { return r.key("ticket", id) }

func (r *RedisBackend) movieScreeningsKey(movieID string) string {
	return r.key("movie", movieID, "screenings")
}

func (r *RedisBackend) screeningTicketsKey(screeningID string) string {
	return r.key("screening", screeningID, "tickets")
}

func (r *RedisBackend) Close() error { return nil }

func (r *RedisBackend) CreateUserIfAbsent(ctx context.Context, u UserRecord) (bool, error) {
	doc, err := json.Marshal(u)
	if err != nil {
		return false, fmt.Errorf("marshal user: %w", err)
	}
	created, err := r.createIfAbsent(ctx, r.emailKey(u.Email), r.userKey(u.ID), r.key("users"), u.ID, doc)
	if err != nil {
		return false, fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return created, nil
}

func (r *RedisBackend) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	id, err := r.rdb.Get(ctx, r.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email %s: %w", email, err)
	}
	var u UserRecord
	found, err := r.getJSON(ctx, r.userKey(id), &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

func (r *RedisBackend) DeleteUserByEmail(ctx context.Context, email string) error {
	id, err := r.rdb.Get(ctx, r.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup email %s: %w", email, err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.emailKey(email), r.userKey(id))
		p.SRem(ctx, r.key("users"), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) ListUsers(ctx context.Context) ([]UserRecord, error) {
	return listJSON[UserRecord](ctx, r.rdb, r.key("users"), r.userKey)
}

func (r *RedisBackend) SaveMovie(ctx context.Context, m MovieRecord) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal movie: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.titleKey(m.Title), m.ID, 0)
		p.Set(ctx, r.movieKey(m.ID), string(doc), 0)
		p.SAdd(ctx, r.key("movies"), m.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save movie %s: %w", m.ID, err)
	}
	return nil
}

func (r *RedisBackend) CreateMovieIfAbsent(ctx context.Context, m MovieRecord) (bool, error) {
	doc, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("marshal movie: %w", err)
	}
	created, err := r.createIfAbsent(ctx, r.titleKey(m.Title), r.movieKey(m.ID), r.key("movies"), m.ID, doc)
	if err != nil {
		return false, fmt.Errorf("create movie %s: %w", m.ID, err)
	}
	return created, nil
}

// createIfAbsentScript claims the natural key and writes the document in one
// step, so a claim never exists without its document.
//
//	KEYS: natural key, document key, id set   ARGV: id, document
var createIfAbsentScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2])
redis.call('SADD', KEYS[3], ARGV[1])
return 1
`)

func (r *RedisBackend) createIfAbsent(ctx context.Context, natural, docKey, set, id string, doc []byte) (bool, error) {
	n, err := createIfAbsentScript.Run(ctx, r.rdb, []string{natural, docKey, set}, id, string(doc)).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisBackend) DeleteMovie(ctx context.Context, id string) error {
	var m MovieRecord
	found, err := r.getJSON(ctx, r.movieKey(id), &m)
	if err != nil {
		return err
	}
	screenings, err := r.rdb.SMembers(ctx, r.movieScreeningsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("list screenings of movie %s: %w", id, err)
	}
	tickets := make(map[string][]string, len(screenings))
	for _, sid := range screenings {
		ids, err := r.rdb.SMembers(ctx, r.screeningTicketsKey(sid)).Result()
		if err != nil {
			return fmt.Errorf("list tickets of screening %s: %w", sid, err)
		}
		tickets[sid] = ids
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, sid := range screenings {
			r.dropScreening(ctx, p, sid, tickets[sid])
		}
		if found {
			p.Del(ctx, r.titleKey(m.Title))
		}
		p.Del(ctx, r.movieKey(id), r.movieScreeningsKey(id))
		p.SRem(ctx, r.key("movies"), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete movie %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) dropScreening(ctx context.Context, p redis.Pipeliner, id string, tickets []string) {
	for _, tid := range tickets {
		p.Del(ctx, r.ticketKey(tid))
		p.SRem(ctx, r.key("tickets"), tid)
	}
	p.Del(ctx, r.screeningKey(id), r.screeningTicketsKey(id))
	p.SRem(ctx, r.key("screenings"), id)
}

func (r *RedisBackend) ListMovies(ctx context.Context) ([]MovieRecord, error) {
	return listJSON[MovieRecord](ctx, r.rdb, r.key("movies"), r.movieKey)
}

func (r *RedisBackend) SaveScreening(ctx context.Context, s ScreeningRecord) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal screening: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.screeningKey(s.ID), string(doc), 0)
		p.SAdd(ctx, r.key("screenings"), s.ID)
		p.SAdd(ctx, r.movieScreeningsKey(s.MovieID), s.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save screening %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisBackend) DeleteScreening(ctx context.Context, id string) error {
	var s ScreeningRecord
	found, err := r.getJSON(ctx, r.screeningKey(id), &s)
	if err != nil {
		return err
	}
	tickets, err := r.rdb.SMembers(ctx, r.screeningTicketsKey(id)).Result()
	if err != nil {
		return fmt.Errorf("list tickets of screening %s: %w", id, err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		r.dropScreening(ctx, p, id, tickets)
		if found {
			p.SRem(ctx, r.movieScreeningsKey(s.MovieID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete screening %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) ListScreenings(ctx context.Context) ([]ScreeningRecord, error) {
	return listJSON[ScreeningRecord](ctx, r.rdb, r.key("screenings"), r.screeningKey)
}

func (r *RedisBackend) SaveTicket(ctx context.Context, t TicketRecord) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.ticketKey(t.ID), string(doc), 0)
		p.SAdd(ctx, r.key("tickets"), t.ID)
		p.SAdd(ctx, r.screeningTicketsKey(t.ScreeningID), t.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save ticket %s: %w", t.ID, err)
	}
	return nil
}

func (r *RedisBackend) DeleteTicket(ctx context.Context, id string) error {
	var t TicketRecord
	found, err := r.getJSON(ctx, r.ticketKey(id), &t)
	if err != nil || !found {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.ticketKey(id))
		p.SRem(ctx, r.key("tickets"), id)
		p.SRem(ctx, r.screeningTicketsKey(t.ScreeningID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete ticket %s: %w", id, err)
	}
	return nil
}

func (r *RedisBackend) ListTickets(ctx context.Context) ([]TicketRecord, error) {
	return listJSON[TicketRecord](ctx, r.rdb, r.key("tickets"), r.ticketKey)
}

func (r *RedisBackend) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// listJSON loads every document whose id is in setKey. Ids whose document
// is gone are skipped.
func listJSON[T any](ctx context.Context, rdb redis.UniversalClient, setKey string, key func(string) string) ([]T, error) {
	ids, err := rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", setKey, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	vals, err := rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", setKey, err)
	}
	out := make([]T, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}
