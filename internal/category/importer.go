package category

import (
	"encoding/json"
	"fmt"
	"os"
)

// SeedCategory 定义了导入文件中单个类别的结构。
// 类别的生成方式（CSV转换、手工编辑等）属于外部协作方，
// 本系统只约定这个JSON边界。
type SeedCategory struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
}

// LoadSeedFile 读取并解析类别导入文件
func LoadSeedFile(path string) ([]SeedCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取类别导入文件 %s: %w", path, err)
	}

	var seeds []SeedCategory
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("类别导入文件 %s 格式非法: %w", path, err)
	}

	for i, seed := range seeds {
		if seed.ID == "" {
			return nil, fmt.Errorf("类别导入文件第 %d 项缺少id", i+1)
		}
		if len(seed.Options) == 0 {
			return nil, fmt.Errorf("类别 %s 没有候选项", seed.ID)
		}
	}
	return seeds, nil
}
