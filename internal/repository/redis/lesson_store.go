package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	lessonKeyPrefix = "lesson:"
	lessonIndexKey  = "lessons:index"

	// lessons age out; routing conditions from months ago mislead more
	// than they help
	defaultLessonTTL = 30 * 24 * time.Hour
)

// Embedder turns lesson text into vectors. Document and query sides
// differ because the embedding model uses asymmetric task prefixes.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// LessonStore keeps distilled routing lessons in Redis and searches
// them by brute-force cosine similarity. Vectors are normalized on
// write so dot product equals cosine similarity. At the expected
// catalog size (thousands of lessons) exact search is cheap.
type LessonStore struct {
	client   *redis.Client
	embedder Embedder
	ttl      time.Duration
}

var _ routing.LessonRepository = (*LessonStore)(nil)

func NewLessonStore(client *redis.Client, embedder Embedder) *LessonStore {
	return &LessonStore{
		client:   client,
		embedder: embedder,
		ttl:      defaultLessonTTL,
	}
}

func (s *LessonStore) Add(ctx context.Context, lesson domain.Lesson) error {
	if lesson.Key == "" {
		return fmt.Errorf("lesson key is required")
	}
	if lesson.Text == "" {
		return fmt.Errorf("lesson text is required")
	}

	if len(lesson.Embedding) == 0 {
		vec, err := s.embedder.EmbedDocument(ctx, lesson.Text)
		if err != nil {
			return fmt.Errorf("failed to embed lesson: %w", err)
		}
		lesson.Embedding = vec
	}
	lesson.Embedding = normalize(lesson.Embedding)

	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now()
	}

	jsonData, err := json.Marshal(lesson)
	if err != nil {
		return fmt.Errorf("failed to marshal lesson: %w", err)
	}

	key := lessonKeyPrefix + lesson.Key
	if err := s.client.Set(ctx, key, jsonData, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store lesson in Redis: %w", err)
	}
	if err := s.client.SAdd(ctx, lessonIndexKey, lesson.Key).Err(); err != nil {
		return fmt.Errorf("failed to index lesson: %w", err)
	}

	return nil
}

// Search embeds the query and returns the top-K lessons by cosine
// similarity. Index entries whose lesson has expired are pruned as a
// side effect.
func (s *LessonStore) Search(ctx context.Context, query string, k int) ([]domain.LessonMatch, error) {
	if k <= 0 {
		k = 5
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec = normalize(queryVec)

	keys, err := s.client.SMembers(ctx, lessonIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read lesson index: %w", err)
	}
	if len(keys) == 0 {
		return []domain.LessonMatch{}, nil
	}

	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = lessonKeyPrefix + key
	}

	values, err := s.client.MGet(ctx, fullKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load lessons: %w", err)
	}

	matches := make([]domain.LessonMatch, 0, len(values))
	for i, val := range values {
		if val == nil {
			// expired lesson, drop the index entry
			if err := s.client.SRem(ctx, lessonIndexKey, keys[i]).Err(); err != nil {
				logger.Debug("lesson_index_prune_failed", "key", keys[i], "error", err)
			}
			continue
		}

		raw, ok := val.(string)
		if !ok {
			continue
		}

		var lesson domain.Lesson
		if err := json.Unmarshal([]byte(raw), &lesson); err != nil {
			logger.Warn("Failed to unmarshal lesson", "key", keys[i], "error", err)
			continue
		}
		if len(lesson.Embedding) != len(queryVec) {
			continue
		}

		matches = append(matches, domain.LessonMatch{
			Lesson: lesson,
			Score:  dotProduct(queryVec, lesson.Embedding),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

// Count returns the number of indexed lessons.
func (s *LessonStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, lessonIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return n, nil
}

// --- math helpers ---

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		out := make([]float32, len(v))
		return out
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
