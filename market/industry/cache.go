// Package industry 提供行业分类缓存管理
package industry

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"flowquant/market"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Cache 行业分类的内存索引。从种子文件加载，文件变更时经
// fsnotify 自动重载。存储层的 industries 表是排行统计的权威来源，
// 这里只服务行业查询接口和映射校验。
type Cache struct {
	mu       sync.RWMutex
	byCode   map[string]*market.IndustryClassification
	filePath string
	lastLoad time.Time

	watcher *fsnotify.Watcher
	done    chan struct{}
	log     *zap.Logger
}

// NewCache 创建缓存，filePath 支持 .json 或 GBK 编码的 .csv
func NewCache(filePath string, logger *zap.Logger) *Cache {
	return &Cache{
		byCode:   make(map[string]*market.IndustryClassification),
		filePath: filePath,
		done:     make(chan struct{}),
		log:      logger,
	}
}

// Load 从种子文件全量重建索引
func (c *Cache) Load() error {
	var (
		industries []market.IndustryClassification
		err        error
	)
	switch strings.ToLower(filepath.Ext(c.filePath)) {
	case ".csv":
		industries, err = c.loadCSV()
	default:
		industries, err = c.loadJSON()
	}
	if err != nil {
		return err
	}

	byCode := make(map[string]*market.IndustryClassification, len(industries))
	for i := range industries {
		ind := &industries[i]
		if ind.Level == 0 {
			ind.Level = levelFromCode(ind.Code)
		}
		byCode[ind.Code] = ind
	}

	c.mu.Lock()
	c.byCode = byCode
	c.lastLoad = time.Now()
	c.mu.Unlock()

	c.log.Info("industry classifications loaded",
		zap.String("file", c.filePath), zap.Int("count", len(byCode)))
	return nil
}

func (c *Cache) loadJSON() ([]market.IndustryClassification, error) {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		return nil, fmt.Errorf("read industry file: %w", err)
	}
	var industries []market.IndustryClassification
	if err := json.Unmarshal(data, &industries); err != nil {
		return nil, fmt.Errorf("parse industry file: %w", err)
	}
	return industries, nil
}

// loadCSV 解析 GBK 编码的 CSV（code,name,parent_code），
// 行业数据源的导出文件普遍是 GBK
func (c *Cache) loadCSV() ([]market.IndustryClassification, error) {
	file, err := os.Open(c.filePath)
	if err != nil {
		return nil, fmt.Errorf("open industry file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(transform.NewReader(file, simplifiedchinese.GBK.NewDecoder()))
	reader.FieldsPerRecord = -1

	var industries []market.IndustryClassification
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse industry csv: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		code := strings.TrimSpace(row[0])
		if code == "" || !isDigits(code) {
			continue // 表头或脏行
		}
		ind := market.IndustryClassification{
			Code:     code,
			Name:     strings.TrimSpace(row[1]),
			IsActive: true,
		}
		if len(row) >= 3 {
			ind.ParentCode = strings.TrimSpace(row[2])
		}
		industries = append(industries, ind)
	}
	return industries, nil
}

// Get 按行业代码查询
func (c *Cache) Get(code string) (*market.IndustryClassification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ind, ok := c.byCode[code]
	return ind, ok
}

// Active 返回所有启用的分类
func (c *Cache) Active() []market.IndustryClassification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	industries := make([]market.IndustryClassification, 0, len(c.byCode))
	for _, ind := range c.byCode {
		if ind.IsActive {
			industries = append(industries, *ind)
		}
	}
	return industries
}

// LastLoad 上次加载时间
func (c *Cache) LastLoad() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLoad
}

// Watch 监听种子文件变更并自动重载
func (c *Cache) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(c.filePath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch industry file dir: %w", err)
	}
	c.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != c.filePath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := c.Load(); err != nil {
					c.log.Error("industry reload failed", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.log.Error("industry watcher error", zap.Error(err))
			case <-c.done:
				return
			}
		}
	}()
	return nil
}

// Stop 停止监听
func (c *Cache) Stop() {
	close(c.done)
	if c.watcher != nil {
		c.watcher.Close()
	}
}

// levelFromCode 按代码前缀长度推层级：2位→1级，4位→2级，其余→3级
func levelFromCode(code string) int {
	switch {
	case len(code) <= 2:
		return 1
	case len(code) <= 4:
		return 2
	default:
		return 3
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
