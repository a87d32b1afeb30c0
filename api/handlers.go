package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/platform/health"
	"github.com/dc-folding/team-comp-backend/internal/repo"
	"github.com/dc-folding/team-comp-backend/internal/scheduler"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

// Enroller 为新用户建档：创建用户并从统计源记录其赛季基线。
type Enroller interface {
	Enroll(ctx context.Context, user *domain.User) error
}

// Handler 持有处理请求所需的核心组件。
type Handler struct {
	Repo      *repo.CachedStore
	Scheduler *scheduler.Scheduler
	Enroller  Enroller
	// Health 为nil时健康检查报告为跳过状态。
	Health *health.Checker
}

// NewHandler 创建API处理器。
func NewHandler(r *repo.CachedStore, s *scheduler.Scheduler, e Enroller) *Handler {
	return &Handler{Repo: r, Scheduler: s, Enroller: e}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的ID参数"})
		return 0, false
	}
	return uint(id), true
}

// --- 排行与成绩查询 ---

// GetSummary 返回当前赛季的全量排行汇总。
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.Repo.GetCompetitionSummary(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "汇总计算失败"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetUserStats 返回单个用户的最新小时成绩。
func (h *Handler) GetUserStats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, err := h.Repo.GetHourlyTcStats(id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("用户 %d 还没有成绩记录", id)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据库查询失败"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// GetFirstUserStats 返回单个用户本赛季最早的小时成绩，用于排查基线问题。
func (h *Handler) GetFirstUserStats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, err := h.Repo.GetFirstHourlyTcStats(id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("用户 %d 还没有成绩记录", id)})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "数据库查询失败"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// --- 硬件管理 ---

func (h *Handler) CreateHardware(c *gin.Context) {
	var hw domain.Hardware
	if err := c.ShouldBindJSON(&hw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	if err := h.Repo.CreateHardware(&hw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建硬件失败"})
		return
	}
	c.JSON(http.StatusCreated, hw)
}

func (h *Handler) UpdateHardware(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var hw domain.Hardware
	if err := c.ShouldBindJSON(&hw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	hw.ID = id
	if err := h.Repo.UpdateHardware(hw); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("找不到ID为 %d 的硬件", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新硬件失败"})
		return
	}
	c.JSON(http.StatusOK, hw)
}

func (h *Handler) DeleteHardware(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Repo.DeleteHardware(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("找不到ID为 %d 的硬件", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除硬件失败"})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- 队伍管理 ---

func (h *Handler) CreateTeam(c *gin.Context) {
	var team domain.Team
	if err := c.ShouldBindJSON(&team); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	if err := h.Repo.CreateTeam(&team); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建队伍失败"})
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *Handler) UpdateTeam(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var team domain.Team
	if err := c.ShouldBindJSON(&team); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	team.ID = id
	if err := h.Repo.UpdateTeam(team); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("找不到ID为 %d 的队伍", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新队伍失败"})
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *Handler) DeleteTeam(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Repo.DeleteTeam(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("找不到ID为 %d 的队伍", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除队伍失败"})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- 用户管理 ---

// UserRequest 是创建/更新用户的请求体。
// Passkey在持久化模型上对外不可见，只能经由这里写入。
type UserRequest struct {
	FoldingName string `json:"foldingName"`
	Passkey     string `json:"passkey"`
	DisplayName string `json:"displayName"`
	Category    string `json:"category"`
	HardwareID  uint   `json:"hardwareId"`
	TeamID      uint   `json:"teamId"`
	IsCaptain   bool   `json:"isCaptain"`
	IsRetired   bool   `json:"isRetired"`
}

func (r UserRequest) toUser() domain.User {
	return domain.User{
		Identity:    domain.Identity{FoldingName: r.FoldingName, Passkey: r.Passkey},
		DisplayName: r.DisplayName,
		Category:    r.Category,
		HardwareID:  r.HardwareID,
		TeamID:      r.TeamID,
		IsCaptain:   r.IsCaptain,
		IsRetired:   r.IsRetired,
	}
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	user := req.toUser()
	if err := h.Enroller.Enroll(c.Request.Context(), &user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("创建用户失败: %v", err)})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	user := req.toUser()
	user.ID = id
	if err := h.Repo.UpdateUser(user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("找不到ID为 %d 的用户", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新用户失败"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Repo.DeleteUser(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("找不到ID为 %d 的用户", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除用户失败"})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- 计算与赛季管理 ---

// RecomputeAll 手动触发一次全量成绩计算。计算同步执行，完成后才返回。
func (h *Handler) RecomputeAll(c *gin.Context) {
	if err := h.Scheduler.RecomputeAllNow(c.Request.Context()); err != nil {
		if errors.Is(err, scheduler.ErrSystemBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "已有计算任务在运行，请稍后重试"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "全量计算失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "全量计算完成"})
}

// EpochReset 手动触发一次赛季重置。部分失败时返回失败明细。
func (h *Handler) EpochReset(c *gin.Context) {
	report, err := h.Scheduler.EpochResetNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrSystemBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "已有计算任务在运行，请稍后重试"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "赛季重置失败"})
		return
	}
	if report.Partial() {
		c.JSON(http.StatusOK, gin.H{"message": "赛季重置完成，但有条目失败", "failures": report.Failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "赛季重置完成"})
}

// ApplyOffset 为指定用户写入一条人工修正并立刻重算。
func (h *Handler) ApplyOffset(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var offset domain.OffsetStats
	if err := c.ShouldBindJSON(&offset); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
		return
	}
	offset.UserID = id
	if err := h.Scheduler.ApplyOffsetNow(c.Request.Context(), offset); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("找不到ID为 %d 的用户", id)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "人工修正失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "人工修正已生效"})
}

// HealthCheck 报告SQLite与Redis镜像的可用性。
func (h *Handler) HealthCheck(c *gin.Context) {
	status := h.Health.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// --- 调试 ---

// DumpCaches 返回所有内存缓存的当前内容，便于核对缓存一致性。
func (h *Handler) DumpCaches(c *gin.Context) {
	c.JSON(http.StatusOK, h.Repo.DumpCacheContents())
}
