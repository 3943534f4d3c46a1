package data

import (
	"encoding/json"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/data/db"
	"github.com/harrison-roh/tensorflow-label-image/labelapp/ranking"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	tableName  string = "label_tab"
	driverName string = "mysql"

	defaultListLimit int = 20
)

// Manager 레이블 추론 기록을 관리
type Manager struct {
	Conn *db.DBconn
}

// Record 추론 결과 기록, 생성된 기록 id 반환
func (dm *Manager) Record(model, image string, minPercent float64, infers []ranking.InferLabel) (string, error) {
	labels, err := json.Marshal(infers)
	if err != nil {
		return "", err
	}

	item := db.Item{
		ID:         uuid.New().String(),
		Model:      model,
		Image:      image,
		MinPercent: minPercent,
		Labels:     string(labels),
		CreateAt:   time.Now(),
	}
	if len(infers) > 0 {
		item.TopLabel = infers[0].Label
		item.TopProb = infers[0].Prob
	}

	if err := dm.Conn.Insert(item); err != nil {
		return "", errors.Wrapf(err, "Fail to record %s", image)
	}

	return item.ID, nil
}

// List 최근 추론 기록 반환
func (dm *Manager) List(limit int) ([]db.Item, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	return dm.Conn.Get(limit)
}

// Destroy Data manager 해제
func (dm *Manager) Destroy() {
	if err := dm.Conn.Destroy(); err != nil {
		klog.Errorf("DB %s close failed: %v", dm.Conn.TableName, err)
	} else {
		klog.Infof("DB %s successfully closed", dm.Conn.TableName)
	}
}

// connInfo createAt 조회를 위해 parseTime 설정
func connInfo(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "Invalid DSN")
	}
	cfg.ParseTime = true

	return cfg.FormatDSN(), nil
}

// New 새로운 Data manager 생성
func New(dsn string) (*Manager, error) {
	info, err := connInfo(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := db.New(db.Config{
		DriverName: driverName,
		ConnInfo:   info,
		TableName:  tableName,
	})
	if err != nil {
		return nil, err
	}
	klog.Infof("DB %s successfully initialized", tableName)

	return &Manager{
		Conn: conn,
	}, nil
}
