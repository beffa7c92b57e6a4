// Package server 研究服务的 HTTP 接口
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	hconsts "github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/protocol/sse"
	"github.com/google/uuid"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/knowledge"
)

// Researcher 研究入口
type Researcher interface {
	Research(ctx context.Context, query, sessionID string) (*model.State, error)
	RunStreaming(ctx context.Context, query, sessionID string) <-chan model.Event
}

// Handler HTTP 处理器
type Handler struct {
	researcher Researcher
	store      *knowledge.Store
}

// NewHandler 创建实例
func NewHandler(researcher Researcher, store *knowledge.Store) *Handler {
	return &Handler{researcher: researcher, store: store}
}

// New 创建 hertz 服务并注册路由
func New(addr string, h *Handler) *server.Hertz {
	srv := server.New(server.WithHostPorts(addr))
	Register(srv, h)
	return srv
}

// Register 注册全部路由
func Register(srv *server.Hertz, h *Handler) {
	srv.GET("/", h.root)
	srv.GET("/health", h.health)
	srv.POST("/research", h.research)
	srv.POST("/research/stream", h.researchStream)
	srv.GET("/materials", h.listMaterials)
	srv.GET("/materials/:material", h.materialGuide)
	srv.GET("/defects", h.listDefects)
	srv.GET("/defects/:defect", h.defectGuide)
	srv.GET("/experiments", h.listExperiments)
	srv.POST("/experiments", h.addExperiment)
}

func (h *Handler) root(ctx context.Context, c *app.RequestContext) {
	c.JSON(hconsts.StatusOK, utils.H{
		"name":    consts.AppName,
		"status":  "running",
		"version": consts.Version,
	})
}

func (h *Handler) health(ctx context.Context, c *app.RequestContext) {
	c.JSON(hconsts.StatusOK, utils.H{"status": "healthy"})
}

// bindResearch 解析研究请求，query 为空时返回错误
func bindResearch(c *app.RequestContext) (model.ResearchRequest, error) {
	var req model.ResearchRequest
	if err := c.BindJSON(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, errors.New("query is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	return req, nil
}

func (h *Handler) research(ctx context.Context, c *app.RequestContext) {
	req, err := bindResearch(c)
	if err != nil {
		c.JSON(hconsts.StatusBadRequest, model.ResearchResponse{Success: false, Error: err.Error()})
		return
	}

	state, err := h.researcher.Research(ctx, EnhanceQuery(req), req.SessionID)
	if err != nil {
		slog.Error("research failed, session = %s, err = %+v", req.SessionID, err)
		c.JSON(hconsts.StatusInternalServerError, model.ResearchResponse{
			SessionID: req.SessionID,
			Success:   false,
			Error:     err.Error(),
		})
		return
	}
	c.JSON(hconsts.StatusOK, model.ResearchResponse{
		Response:  state.FinalResponse,
		Sources:   state.SourcesCited,
		SessionID: req.SessionID,
		Success:   true,
	})
}

func (h *Handler) researchStream(ctx context.Context, c *app.RequestContext) {
	req, err := bindResearch(c)
	if err != nil {
		c.JSON(hconsts.StatusBadRequest, model.ResearchResponse{Success: false, Error: err.Error()})
		return
	}

	w := sse.NewWriter(c)
	events := h.researcher.RunStreaming(ctx, EnhanceQuery(req), req.SessionID)
	if err := Forward(events, w.WriteEvent); err != nil {
		slog.Error("researchStream failed, session = %s, err = %+v", req.SessionID, err)
	}
}

// Forward 把研究事件逐条写出，写失败时继续消费事件直到通道关闭
func Forward(events <-chan model.Event, write func(id, event string, data []byte) error) error {
	var writeErr error
	for ev := range events {
		if writeErr != nil {
			continue
		}
		data, err := json.Marshal(ev)
		if err != nil {
			writeErr = err
			continue
		}
		writeErr = write("", ev.Type, data)
	}
	return writeErr
}

// EnhanceQuery 把材料与当前参数拼入问题，参数按键名排序
func EnhanceQuery(req model.ResearchRequest) string {
	query := strings.TrimSpace(req.Query)
	if req.Material != "" {
		query = fmt.Sprintf("[Material: %s] %s", req.Material, query)
	}
	if len(req.CurrentParams) > 0 {
		keys := make([]string, 0, len(req.CurrentParams))
		for k := range req.CurrentParams {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, req.CurrentParams[k]))
		}
		query = fmt.Sprintf("%s (current settings: %s)", query, strings.Join(pairs, ", "))
	}
	return query
}

func (h *Handler) listMaterials(ctx context.Context, c *app.RequestContext) {
	c.JSON(hconsts.StatusOK, h.store.Materials())
}

func (h *Handler) materialGuide(ctx context.Context, c *app.RequestContext) {
	material := c.Param("material")
	guide, found := h.store.MaterialGuide(material)
	c.JSON(hconsts.StatusOK, model.GuideResponse{
		Material: strings.ToUpper(material),
		Guide:    guide,
		Found:    found,
	})
}

func (h *Handler) listDefects(ctx context.Context, c *app.RequestContext) {
	c.JSON(hconsts.StatusOK, h.store.Defects())
}

func (h *Handler) defectGuide(ctx context.Context, c *app.RequestContext) {
	defect := c.Param("defect")
	guide, found := h.store.DefectSolution(defect)
	c.JSON(hconsts.StatusOK, model.GuideResponse{
		Defect: defect,
		Guide:  guide,
		Found:  found,
	})
}

func (h *Handler) listExperiments(ctx context.Context, c *app.RequestContext) {
	c.JSON(hconsts.StatusOK, h.store.Experiments())
}

func (h *Handler) addExperiment(ctx context.Context, c *app.RequestContext) {
	var exp model.Experiment
	if err := c.BindJSON(&exp); err != nil {
		c.JSON(hconsts.StatusBadRequest, model.ExperimentResponse{Message: err.Error()})
		return
	}

	saved, err := h.store.AddExperiment(exp)
	if err != nil {
		status := hconsts.StatusInternalServerError
		if errors.Is(err, knowledge.ErrInvalidExperiment) {
			status = hconsts.StatusBadRequest
		}
		slog.Error("addExperiment failed, err = %+v", err)
		c.JSON(status, model.ExperimentResponse{Message: err.Error()})
		return
	}
	c.JSON(hconsts.StatusOK, model.ExperimentResponse{
		Success:      true,
		Message:      "experiment saved",
		ExperimentID: saved.ExperimentID,
	})
}
