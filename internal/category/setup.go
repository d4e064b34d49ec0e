package category

import (
	"encoding/json"
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/database"
	"gorm.io/gorm/clause"
)

// PrimeDB 负责初始化category模块：迁移表结构、按需从导入文件播种，
// 并从SQLite构建内存仓库。返回的仓库随后交由会话编排器独占持有。
func PrimeDB(seedPath string) (*Store, error) {
	if err := database.DB.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("无法迁移category表: %w", err)
	}
	fmt.Println("Category数据库表迁移成功。")

	var count int64
	if err := database.DB.Model(&Record{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("无法统计category表: %w", err)
	}

	if count == 0 {
		if err := seedFromFile(seedPath); err != nil {
			return nil, err
		}
	}

	return buildStoreFromDB()
}

// ResetDB 执行完全重置：清空所有类别行并从导入文件重新播种。
// 只应由编排器的Reset操作调用。
func ResetDB(seedPath string) (*Store, error) {
	if err := database.DB.Exec("DELETE FROM categories").Error; err != nil {
		return nil, fmt.Errorf("清空category表失败: %w", err)
	}
	if err := seedFromFile(seedPath); err != nil {
		return nil, err
	}
	return buildStoreFromDB()
}

// seedFromFile 从导入文件写入全新的类别行
func seedFromFile(seedPath string) error {
	seeds, err := LoadSeedFile(seedPath)
	if err != nil {
		return err
	}

	for _, seed := range seeds {
		optionsJSON, _ := json.Marshal(seed.Options)
		record := Record{
			CategoryID:  seed.ID,
			Title:       seed.Title,
			Description: seed.Description,
			Options:     string(optionsJSON),
			Status:      StatusNotStarted,
			Results:     "{}",
		}
		if err := database.DB.Create(&record).Error; err != nil {
			return fmt.Errorf("无法写入类别 %s: %w", seed.ID, err)
		}
	}

	fmt.Printf("成功从 %s 导入 %d 个类别。\n", seedPath, len(seeds))
	return nil
}

// buildStoreFromDB 从SQLite行构建内存仓库。
// 结果映射留空，由vote模块的恢复流程根据投票日志重新累计，
// 保证计票永远与已落库的投票记录严格一致。
func buildStoreFromDB() (*Store, error) {
	var records []Record
	if err := database.DB.Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("无法从SQLite加载类别: %w", err)
	}

	categories := make([]*Category, 0, len(records))
	for _, record := range records {
		var options []string
		if err := json.Unmarshal([]byte(record.Options), &options); err != nil {
			return nil, fmt.Errorf("类别 %s 的候选项数据损坏: %w", record.CategoryID, err)
		}

		c := &Category{
			ID:          record.CategoryID,
			Title:       record.Title,
			Description: record.Description,
			Options:     options,
			Status:      record.Status,
			Revealed:    record.Revealed,
			Results:     make(map[string]int),
			StartedAt:   record.StartedAt,
			CompletedAt: record.CompletedAt,
			RevealedAt:  record.RevealedAt,
		}
		if c.Status == "" {
			c.Status = StatusNotStarted
		}

		// 崩溃时正处于active的类别没有可恢复的会话，回退为not-started，
		// 已落库的投票仍然保留并计入结果
		if c.Status == StatusActive {
			fmt.Printf("恢复: 类别 %s 在上次退出时仍处于active，已回退为not-started。\n", c.ID)
			c.Status = StatusNotStarted
			c.StartedAt = nil
		}

		categories = append(categories, c)
	}

	fmt.Printf("类别仓库构建完成，加载了 %d 个类别。\n", len(categories))
	return NewStore(categories), nil
}

// Persist 将单个类别的运行期状态写回SQLite。
// 由编排器在生命周期转换（开始/结束/揭晓）和最终快照时调用。
func Persist(c *Category) error {
	optionsJSON, _ := json.Marshal(c.Options)
	resultsJSON, _ := json.Marshal(c.Results)

	record := Record{
		CategoryID:  c.ID,
		Title:       c.Title,
		Description: c.Description,
		Options:     string(optionsJSON),
		Status:      c.Status,
		VoteCount:   c.VoteCount,
		Results:     string(resultsJSON),
		Revealed:    c.Revealed,
		StartedAt:   c.StartedAt,
		CompletedAt: c.CompletedAt,
		RevealedAt:  c.RevealedAt,
	}

	err := database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "options", "status", "vote_count",
			"results", "revealed", "started_at", "completed_at", "revealed_at", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("无法持久化类别 %s: %w", c.ID, err)
	}
	return nil
}
