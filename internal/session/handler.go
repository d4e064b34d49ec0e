package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusForError 将会话错误映射为HTTP状态码
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMissingDeviceID), errors.Is(err, ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNoActiveSession),
		errors.Is(err, ErrNotCompleted), errors.Is(err, ErrAlreadyRevealed),
		IsDuplicateVote(err):
		return http.StatusConflict
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// StartCategory 处理主持人的开轮命令
func StartCategory(c *gin.Context) {
	categoryID := c.Param("id")
	if err := Global.StartCategory(categoryID); err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "投票轮已开启", "categoryId": categoryID})
}

// StopCategory 处理主持人的结束命令
func StopCategory(c *gin.Context) {
	categoryID := c.Param("id")
	if err := Global.StopCategory(categoryID); err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "投票轮已结束", "categoryId": categoryID})
}

// RevealWinner 处理主持人的揭晓命令
func RevealWinner(c *gin.Context) {
	categoryID := c.Param("id")
	if err := Global.RevealWinner(categoryID); err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "结果已揭晓", "categoryId": categoryID})
}

// Reset 处理主持人的完全重置命令
func Reset(c *gin.Context) {
	if err := Global.Reset(); err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "完全重置完成"})
}

// AdminStatus 返回主持端状态面板数据
func AdminStatus(c *gin.Context) {
	view, err := Global.AdminStatus()
	if err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// AdminStats 只返回进程级统计快照，供主持端轻量轮询
func AdminStats(c *gin.Context) {
	view, err := Global.AdminStatus()
	if err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view.Stats)
}

// joinRequestBody 定义了参与者join请求的JSON结构
type joinRequestBody struct {
	Token       string `json:"token"`
	DisplayName string `json:"displayName"`
}

// Join 处理参与者的加入请求，返回身份令牌和全量状态快照
func Join(c *gin.Context) {
	var body joinRequestBody
	// join允许空请求体（匿名新参与者）
	_ = c.ShouldBindJSON(&body)

	result, err := Global.Join(body.Token, body.DisplayName)
	if err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// leaveRequestBody 定义了参与者leave请求的JSON结构
type leaveRequestBody struct {
	ParticipantID string `json:"participantId" binding:"required"`
}

// Leave 处理参与者的显式离开（传输层断线由SSE侧自行处理）
func Leave(c *gin.Context) {
	var body leaveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	if err := Global.Leave(body.ParticipantID); err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已离开"})
}

// CurrentState 处理"当前完整状态"查询。
// 重连的客户端必须把每次重连当作一次全量状态同步，调用这个接口。
func CurrentState(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := Global.CurrentState(admin)
		if err != nil {
			c.JSON(StatusForError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// ListCategories 返回带实时状态的类别列表（参与端投影）
func ListCategories(c *gin.Context) {
	view, err := Global.CurrentState(false)
	if err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view.Categories)
}

// CategoryResults 返回单个类别的聚合计票（主持端观测接口）
func CategoryResults(c *gin.Context) {
	view, err := Global.CategoryResults(c.Param("id"))
	if err != nil {
		c.JSON(StatusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}
