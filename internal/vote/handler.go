package vote

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SumedhUnveil/live-voting-gritgags/internal/session"
	"github.com/SumedhUnveil/live-voting-gritgags/pkg/token"
)

type submitRequest struct {
	Token      string `json:"token" binding:"required"`
	CategoryID string `json:"categoryId" binding:"required"`
	Option     string `json:"option" binding:"required"`
	DeviceID   string `json:"deviceId"`
}

// Submit 处理参与者的投票请求。
// 身份从签名令牌中恢复；准入判定全部交给编排器，
// 这里只做令牌校验和请求编解码。
func Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误"})
		return
	}

	participantID, ok := token.VerifyIdentity(req.Token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": session.ErrInvalidIdentity.Error()})
		return
	}

	if err := session.Global.SubmitVote(participantID, req.DeviceID, req.CategoryID, req.Option); err != nil {
		c.JSON(session.StatusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "vote-confirmed",
		"categoryId": req.CategoryID,
		"option":     req.Option,
	})
}
