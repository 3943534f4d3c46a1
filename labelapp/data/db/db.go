package db

import (
	"database/sql"
	"fmt"
	"time"

	// mysql driver
	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Config DBconn config
type Config struct {
	DriverName string
	ConnInfo   string

	TableName string
}

// DBconn db 연결정보
type DBconn struct {
	DriverName string
	ConnInfo   string

	TableName string

	db *sql.DB
}

// Item 레이블 추론 기록 항목
type Item struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Image      string    `json:"image"`
	TopLabel   string    `json:"topLabel"`
	TopProb    float32   `json:"topProbability"`
	MinPercent float64   `json:"minPercent"`
	Labels     string    `json:"labels"`
	CreateAt   time.Time `json:"createAt"`
}

func (conn *DBconn) createTable() error {
	if _, err := conn.db.Exec(fmt.Sprintf(`CREATE TABLE %s (
		id CHAR(36) NOT NULL PRIMARY KEY,
		model CHAR(40) NOT NULL,
		image VARCHAR(255) NOT NULL,
		toplabel VARCHAR(80) NOT NULL,
		topprob FLOAT NOT NULL,
		minpercent DOUBLE NOT NULL,
		labels TEXT NOT NULL,
		createAt DATETIME NOT NULL);`, conn.TableName)); err != nil {
		return err
	}

	return nil
}

func (conn *DBconn) existsTable() bool {
	rows, err := conn.db.Query(fmt.Sprintf("SELECT 1 FROM %s LIMIT 1;", conn.TableName))
	if err != nil {
		return false
	}
	rows.Close()

	return true
}

func (conn *DBconn) initTable() error {
	if !conn.existsTable() {
		klog.Infof("Create DB table: %s", conn.TableName)
		return conn.createTable()
	}

	return nil
}

// Insert entry 삽입
func (conn *DBconn) Insert(item Item) error {
	createAt := item.CreateAt.UTC().Format("2006-01-02 15:04:05")

	_, err := conn.db.Exec(fmt.Sprintf(`INSERT INTO %s (
		id,
		model,
		image,
		toplabel,
		topprob,
		minpercent,
		labels,
		createAt) value (?, ?, ?, ?, ?, ?, ?, ?);`, conn.TableName),
		item.ID, item.Model, item.Image, item.TopLabel, item.TopProb,
		item.MinPercent, item.Labels, createAt,
	)

	return err
}

// Get 최근 기록부터 limit개 반환
func (conn *DBconn) Get(limit int) ([]Item, error) {
	rows, err := conn.db.Query(fmt.Sprintf(`SELECT
		id, model, image, toplabel, topprob, minpercent, labels, createAt
		FROM %s ORDER BY createAt DESC LIMIT ?;`, conn.TableName), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Model, &item.Image, &item.TopLabel,
			&item.TopProb, &item.MinPercent, &item.Labels, &item.CreateAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Destroy db connection 해제
func (conn *DBconn) Destroy() error {
	return conn.db.Close()
}

// New 새로운 db connection 생성
func New(cfg Config) (*DBconn, error) {
	db, err := sql.Open(cfg.DriverName, cfg.ConnInfo)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to open DB: %s", cfg.DriverName)
	}

	conn := &DBconn{
		DriverName: cfg.DriverName,
		ConnInfo:   cfg.ConnInfo,
		TableName:  cfg.TableName,
		db:         db,
	}

	if err := conn.initTable(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "Fail to init DB table: %s", cfg.TableName)
	}

	return conn, nil
}
