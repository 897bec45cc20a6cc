package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sdnyco/ichi/internal/api/middleware"
	"github.com/sdnyco/ichi/internal/service"
	"github.com/sdnyco/ichi/pkg/response"
)

type sendPingRequest struct {
	CheckInID string `json:"checkInId" binding:"required"`
}

// SendPing 发送今日 ping
// @Summary 发送“刚有人来过”通知
// @Tags ping
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param placeId path string true "地点ID"
// @Param request body sendPingRequest true "签到信息"
// @Success 200 {object} service.Result
// @Failure 400 {object} response.Response
// @Failure 401 {object} service.Result
// @Failure 409 {object} service.Result
// @Failure 429 {object} service.Result
// @Failure 502 {object} service.Result
// @Router /api/v1/places/{placeId}/pings [post]
func (h *Handler) SendPing(c *gin.Context) {
	var req sendPingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res := h.pings.Dispatch(c.Request.Context(), middleware.UserID(c), c.Param("placeId"), req.CheckInID)
	c.JSON(statusFor(res), res)
}

// PingEligibility 预览可接收人数（仅供参考，不预占）
// @Summary 预览 ping 可发送情况
// @Tags ping
// @Produce json
// @Security BearerAuth
// @Param placeId path string true "地点ID"
// @Param checkInId query string true "签到ID"
// @Success 200 {object} service.Result
// @Failure 400 {object} response.Response
// @Failure 401 {object} service.Result
// @Failure 409 {object} service.Result
// @Router /api/v1/places/{placeId}/pings/eligibility [get]
func (h *Handler) PingEligibility(c *gin.Context) {
	checkInID := c.Query("checkInId")
	if checkInID == "" {
		response.BadRequest(c, "checkInId is required")
		return
	}
	res := h.pings.Preview(c.Request.Context(), middleware.UserID(c), c.Param("placeId"), checkInID)
	c.JSON(statusFor(res), res)
}

func statusFor(res service.Result) int {
	if res.OK {
		return http.StatusOK
	}
	switch res.Reason {
	case service.ReasonUnauthorized:
		return http.StatusUnauthorized
	case service.ReasonAccountDisabled:
		return http.StatusForbidden
	case service.ReasonPlaceNotFound, service.ReasonCheckInNotFound:
		return http.StatusNotFound
	case service.ReasonNotEmpty, service.ReasonNoRecipients:
		return http.StatusConflict
	case service.ReasonSendLimit:
		return http.StatusTooManyRequests
	case service.ReasonEmailFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
