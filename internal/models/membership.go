package models

import (
	"time"
)

// Membership 表示用戶與房間的成員關係。
// 不使用軟刪除：離開房間後重新加入時，(room_id, user_id) 唯一索引不能被舊紀錄擋住。
type Membership struct {
	ID       uint      `gorm:"primarykey" json:"-"`
	RoomID   uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"room_id"`
	UserID   uint      `gorm:"uniqueIndex:idx_room_user;not null" json:"user_id"`
	Role     Role      `gorm:"type:varchar(10);not null" json:"role"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

// Role 定義成員在房間中的角色
type Role string

const (
	RoleMember Role = "member" // 一般成員
	RoleAdmin  Role = "admin"  // 管理員，可邀請與踢出成員
)

// CanManage 集中判斷角色是否具備管理權限，
// 所有需要權限檢查的操作都透過這個函數，避免散落的字串比較。
func (r Role) CanManage() bool {
	return r == RoleAdmin
}
