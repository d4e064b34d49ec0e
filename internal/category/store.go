package category

import (
	"sort"
	"time"
)

// Category 是类别在内存仓库中的运行期形态。
// 它只被会话编排器这个单一写入者修改，因此自身不带锁。
type Category struct {
	ID          string
	Title       string
	Description string
	Options     []string

	Status    Status
	VoteCount int
	Results   map[string]int
	Revealed  bool

	StartedAt   *time.Time
	CompletedAt *time.Time
	RevealedAt  *time.Time
}

// CanStart 判断类别是否可以开启一轮投票
func (c *Category) CanStart() bool {
	return c.Status == StatusNotStarted
}

// CanStop 判断类别是否处于可结束的投票状态
func (c *Category) CanStop() bool {
	return c.Status == StatusActive
}

// CanReveal 判断类别是否可以揭晓结果
func (c *Category) CanReveal() bool {
	return c.Status == StatusCompleted && !c.Revealed
}

// Winners 按并列规则计算获胜者集合：
// 得票等于最大票数的每一个候选项都是获胜者，结果按字典序排序以保证稳定。
func (c *Category) Winners() []string {
	maxCount := 0
	for _, count := range c.Results {
		if count > maxCount {
			maxCount = count
		}
	}

	winners := make([]string, 0, 1)
	if maxCount == 0 {
		return winners
	}
	for option, count := range c.Results {
		if count == maxCount {
			winners = append(winners, option)
		}
	}
	sort.Strings(winners)
	return winners
}

// CloneResults 返回结果映射的一份拷贝，供投影和广播安全使用
func (c *Category) CloneResults() map[string]int {
	results := make(map[string]int, len(c.Results))
	for option, count := range c.Results {
		results[option] = count
	}
	return results
}

// Store 是类别的内存仓库，保持导入时的顺序。
// 与Category一样，它由会话编排器独占写入。
type Store struct {
	order      []string
	categories map[string]*Category
}

// NewStore 从一组类别构建内存仓库，保持传入顺序
func NewStore(categories []*Category) *Store {
	store := &Store{
		order:      make([]string, 0, len(categories)),
		categories: make(map[string]*Category, len(categories)),
	}
	for _, c := range categories {
		store.order = append(store.order, c.ID)
		store.categories[c.ID] = c
	}
	return store
}

// Get 按ID查找类别
func (s *Store) Get(id string) (*Category, bool) {
	c, ok := s.categories[id]
	return c, ok
}

// List 按导入顺序返回所有类别
func (s *Store) List() []*Category {
	list := make([]*Category, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.categories[id])
	}
	return list
}

// Len 返回类别数量
func (s *Store) Len() int {
	return len(s.order)
}

// AllRevealed 判断是否所有类别都已揭晓（活动收尾的判定条件）
func (s *Store) AllRevealed() bool {
	if len(s.order) == 0 {
		return false
	}
	for _, id := range s.order {
		if s.categories[id].Status != StatusRevealed {
			return false
		}
	}
	return true
}
