package digits

import (
	"math/rand/v2"
	"strings"
)

// Length 号码位数
const Length = 4

// AllDigits 0-9 全集
var AllDigits = []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

// Source 随机源，*rand.Rand 满足该接口
type Source interface {
	IntN(n int) int
	Float64() float64
}

// NewSource 创建带种子的随机源；seed=0 时使用运行时随机种子
func NewSource(seed uint64) Source {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Valid 是否为合法的 4 位数字串
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < Length; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Clean 保留数字、截断到 4 位并左侧补 0
func Clean(s string) string {
	if len(s) > Length {
		s = s[:Length]
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	out := b.String()
	if len(out) < Length {
		out = strings.Repeat("0", Length-len(out)) + out
	}
	return out
}

// PrefixMatch 从左起连续相同的位数，遇到第一个不同即停止
func PrefixMatch(a, b string) int {
	if !Valid(a) || !Valid(b) {
		return 0
	}
	n := 0
	for i := 0; i < Length; i++ {
		if a[i] != b[i] {
			break
		}
		n++
	}
	return n
}

// Contains 号码是否含有 set 中的任一数字
func Contains(number string, set []int) bool {
	for i := 0; i < len(number); i++ {
		d := int(number[i] - '0')
		for _, k := range set {
			if d == k {
				return true
			}
		}
	}
	return false
}

// Allowed 返回 kill 的补集（按升序）
func Allowed(kill []int) []int {
	var killed [10]bool
	for _, d := range kill {
		if d >= 0 && d <= 9 {
			killed[d] = true
		}
	}
	out := make([]int, 0, 10)
	for d := 0; d <= 9; d++ {
		if !killed[d] {
			out = append(out, d)
		}
	}
	return out
}

// Generator 4 位号码生成器
type Generator struct {
	rnd Source
}

// NewGenerator 创建生成器
func NewGenerator(rnd Source) *Generator {
	if rnd == nil {
		rnd = NewSource(0)
	}
	return &Generator{rnd: rnd}
}

// Source 返回底层随机源
func (g *Generator) Source() Source {
	return g.rnd
}

// Generate 每一位独立、等概率地从 allowed 中抽取（可重复）；allowed 为空时退回 0-9
func (g *Generator) Generate(allowed []int) string {
	pool := normalize(allowed)
	if len(pool) == 0 {
		pool = AllDigits
	}
	var buf [Length]byte
	for i := range buf {
		buf[i] = byte('0' + pool[g.rnd.IntN(len(pool))])
	}
	return string(buf[:])
}

// Random 0000-9999 均匀随机
func (g *Generator) Random() string {
	return g.Generate(AllDigits)
}

// RandomSuffix 保留 prefix，剩余位随机补齐
func (g *Generator) RandomSuffix(prefix string) string {
	if len(prefix) > Length {
		prefix = prefix[:Length]
	}
	var b strings.Builder
	b.WriteString(prefix)
	for i := len(prefix); i < Length; i++ {
		b.WriteByte(byte('0' + g.rnd.IntN(10)))
	}
	return b.String()
}

// normalize 去重并过滤非法数字
func normalize(allowed []int) []int {
	if len(allowed) == 0 {
		return nil
	}
	var seen [10]bool
	out := make([]int, 0, len(allowed))
	for _, d := range allowed {
		if d < 0 || d > 9 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
