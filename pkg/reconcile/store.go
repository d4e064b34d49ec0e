package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore 把本地历史以JSON文件的形式落在磁盘上，
// 每个参与者一个文件。适用于桌面或测试环境；
// 浏览器环境应提供基于localStorage的Store实现。
type FileStore struct {
	dir string
}

// NewFileStore 创建一个以dir为根目录的文件存储
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("无法创建本地历史目录 %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(participantID string) string {
	return filepath.Join(s.dir, participantID+".json")
}

// Load 读取参与者的本地历史，文件不存在时返回nil
func (s *FileStore) Load(participantID string) (*History, error) {
	data, err := os.ReadFile(s.path(participantID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取本地历史: %w", err)
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		// 损坏的历史文件当作不存在处理，重新开始比拒绝启动更好
		return nil, nil
	}
	return &h, nil
}

// Save 原子地写回参与者的本地历史
func (s *FileStore) Save(h *History) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("无法序列化本地历史: %w", err)
	}

	tmp := s.path(h.ParticipantID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("无法写入本地历史: %w", err)
	}
	return os.Rename(tmp, s.path(h.ParticipantID))
}

var _ Store = (*FileStore)(nil)
