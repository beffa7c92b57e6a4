package checkpoint

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	lru "github.com/hashicorp/golang-lru/v2"
)

// checkpoint 研究图的状态存储点，实现 CheckPointStore 接口，用会话ID进行索引
// 容量有限，超出后淘汰最久未访问的会话
type checkpoint struct {
	buf *lru.Cache[string, []byte]
}

var _ compose.CheckPointStore = (*checkpoint)(nil)

func (c *checkpoint) Get(ctx context.Context, checkPointID string) ([]byte, bool, error) {
	data, ok := c.buf.Get(checkPointID)
	return data, ok, nil
}

func (c *checkpoint) Set(ctx context.Context, checkPointID string, checkPoint []byte) error {
	c.buf.Add(checkPointID, checkPoint)
	return nil
}

// NewCheckPoint 创建一个容量为 capacity 的状态存储点
func NewCheckPoint(capacity int) (compose.CheckPointStore, error) {
	buf, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("create checkpoint store: %w", err)
	}
	return &checkpoint{buf: buf}, nil
}
