package indices

import (
	"net/http"
	"statusflow/common"
	"statusflow/session"

	"github.com/gin-gonic/gin"
)

var (
	PathIndexRequests      = "/v1/index-requests"
	PathStatusChangeSearch = "/v1/status-change-search"
)

func RegisterIndicesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	r.Group(PathIndexRequests, middleWares...).POST("", handleIndexRequest)
	r.Group(PathStatusChangeSearch, middleWares...).GET("", handleSearchStatusChanges)
}

func handleIndexRequest(c *gin.Context) {
	success, err := ScheduleNewSyncRunFunc(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"result": success})
}

func handleSearchStatusChanges(c *gin.Context) {
	q := StatusChangeSearch{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	docs, err := SearchStatusChangesFunc(c.Request.Context(), q, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, docs)
}
