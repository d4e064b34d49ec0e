package startup

import (
	"fmt"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/broadcast"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/category"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/participant"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/config"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/platform/metadata"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/session"
	"github.com/SumedhUnveil/live-voting-gritgags/internal/vote"
)

// Application 汇集了初始化完成后的核心组件，供main组装路由和生命周期
type Application struct {
	Hub       *broadcast.Hub
	Orch      *session.Orchestrator
	Processor *vote.Processor
}

// InitializeApplication 是应用启动时执行的总入口：
// 迁移全部表、从种子文件和投票日志恢复权威状态、
// 组装编排器与写入器，并预热Redis镜像。
func InitializeApplication() (*Application, error) {
	fmt.Println("开始应用初始化...")

	if err := metadata.PrimeDB(); err != nil {
		return nil, err
	}
	store, err := category.PrimeDB(config.Cfg.Event.SeedFile)
	if err != nil {
		return nil, err
	}
	if err := participant.PrimeDB(); err != nil {
		return nil, err
	}
	if err := vote.PrimeDB(); err != nil {
		return nil, err
	}

	registry := participant.NewRegistry()
	if err := vote.RestoreState(store, registry); err != nil {
		return nil, err
	}

	hub := broadcast.NewHub()
	orch := session.NewOrchestrator(store, registry, hub, config.Cfg.Event.SeedFile)
	processor := vote.NewProcessor(config.Cfg.Queue, orch)
	orch.AttachQueue(processor)
	orch.SetResetVoteLog(vote.ResetDB)
	session.Global = orch

	if err := RebuildMirror(); err != nil {
		fmt.Printf("警告: 启动时预热Redis镜像失败，等待健康检查器重试: %v\n", err)
	}

	fmt.Println("应用初始化完成！")
	return &Application{Hub: hub, Orch: orch, Processor: processor}, nil
}

// RebuildMirror 把权威状态全量重写进Redis镜像。
// 启动时调用一次，Redis重启恢复时由健康检查器再次触发。
func RebuildMirror() error {
	fmt.Println("开始重建Redis镜像...")

	if err := metadata.WarmupMirror(); err != nil {
		return err
	}
	if err := session.Global.WarmRedisMirror(); err != nil {
		return err
	}
	if err := vote.WarmupMirror(); err != nil {
		return err
	}

	fmt.Println("Redis镜像重建完成。")
	return nil
}
