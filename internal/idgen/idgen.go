// Package idgen 生成上传记录的唯一标识
package idgen

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Policy ID生成策略
type Policy string

const (
	// PolicyShort 4位base36大写短码，冲突时重新采样
	PolicyShort Policy = "short"
	// PolicyUUID 随机UUID，冲突概率可忽略
	PolicyUUID Policy = "uuid"
)

const (
	charset     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortLength = 4

	// DefaultMaxAttempts 短码策略的默认最大采样次数
	DefaultMaxAttempts = 1000
)

// ErrExhausted 在最大采样次数内未找到未占用的ID
var ErrExhausted = errors.New("idgen: no free id found")

// Taken 判断候选ID是否已被占用
type Taken func(id string) (bool, error)

// InSet 基于已有ID集合构造 Taken
func InSet(ids map[string]struct{}) Taken {
	return func(id string) (bool, error) {
		_, ok := ids[id]
		return ok, nil
	}
}

// Generator ID生成器，可并发使用
type Generator struct {
	policy      Policy
	maxAttempts int

	mu  sync.Mutex
	rnd *rand.Rand
}

// New 创建ID生成器
// maxAttempts 小于等于0时使用 DefaultMaxAttempts
func New(policy Policy, maxAttempts int) (*Generator, error) {
	switch policy {
	case PolicyShort, PolicyUUID:
	default:
		return nil, fmt.Errorf("idgen: unsupported policy %q", policy)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		policy:      policy,
		maxAttempts: maxAttempts,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// NewWithSource 使用指定随机源创建短码生成器，便于复现
func NewWithSource(maxAttempts int, src rand.Source) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		policy:      PolicyShort,
		maxAttempts: maxAttempts,
		rnd:         rand.New(src),
	}
}

// Policy 返回当前策略
func (g *Generator) Policy() Policy {
	return g.policy
}

// Generate 生成一个在调用时刻未被占用的ID
// taken 为nil时不做存在性检查
func (g *Generator) Generate(taken Taken) (string, error) {
	if g.policy == PolicyUUID {
		id := uuid.NewString()
		if taken != nil {
			used, err := taken(id)
			if err != nil {
				return "", err
			}
			if used {
				return "", fmt.Errorf("%w: uuid %s already in use", ErrExhausted, id)
			}
		}
		return id, nil
	}

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id := g.shortToken()
		if taken == nil {
			return id, nil
		}
		used, err := taken(id)
		if err != nil {
			return "", err
		}
		if !used {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.maxAttempts)
}

// shortToken 采样一个短码
func (g *Generator) shortToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	sb.Grow(shortLength)
	for i := 0; i < shortLength; i++ {
		sb.WriteByte(charset[g.rnd.Intn(len(charset))])
	}
	return sb.String()
}
