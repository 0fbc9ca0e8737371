package orchestrator

import (
	"context"
	"net/http"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/progress"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every HTTP and websocket endpoint onto router.
func RegisterRoutes(router *gin.Engine, orch *Orchestrator) {
	v1 := router.Group("/api/v1")

	v1.POST("/orgs/:org/sql-pipeline/runs", orch.submitSQLPipelineHandler)
	v1.GET("/sql-pipeline/runs/:id", orch.getSQLRunHandler)

	v1.POST("/orgs/:org/config-pipeline/runs", orch.submitConfigPipelineHandler)
	v1.GET("/config-pipeline/runs/:id", orch.getConfigRunHandler)

	v1.POST("/orgs/:org/context-tree/runs", orch.submitContextTreeHandler)
	v1.GET("/context-tree/runs/:id", orch.getContextTreeRunHandler)
	v1.POST("/context-tree/runs/:id/restructure", orch.restructureContextTreeHandler)

	v1.POST("/orgs/:org/chat/messages", orch.submitChatMessageHandler)
	v1.GET("/chat/conversations/:id", orch.getConversationHandler)
	v1.POST("/chat/runs/:run_id/cancel", orch.cancelChatHandler)

	router.GET("/ws/progress", orch.progressWSHandler)
}

// progressWSHandler upgrades the connection and hands it to the Hub, whose
// built-in ping/cancel handling covers most client traffic; any other
// client message (e.g. a pipeline or chat submission sent over the socket
// instead of HTTP) is dispatched here (§4.2).
func (o *Orchestrator) progressWSHandler(c *gin.Context) {
	userID := userIDFromRequest(c)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	o.hub.Handle(c.Request.Context(), userID, conn, func(_ context.Context, _ *progress.Connection, _ progress.ClientMessage) {
		// No additional client->server message types are currently defined
		// beyond the Hub's built-in ping/cancel; unrecognized types are
		// silently ignored rather than closing the connection.
	})
}
