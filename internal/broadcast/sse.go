package broadcast

import (
	"io"

	"github.com/gin-gonic/gin"
)

// StreamHandler 返回一个gin处理函数，将指定受众组的事件以SSE推送给客户端。
// 具体的双向传输由外部协作方承担，这里只提供服务端到客户端的事件流；
// 客户端重连后应当先请求一次全量状态，再继续消费事件流。
func StreamHandler(hub *Hub, audience Audience) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := hub.Subscribe(audience)
		defer hub.Unsubscribe(sub)

		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-sub.C():
				if !ok {
					return false
				}
				c.SSEvent(event.Type, event.Payload)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
