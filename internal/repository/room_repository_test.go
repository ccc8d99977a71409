package repository

import (
	"testing"
	"time"

	"campus_chat/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Test_CreateWithMembers_Seeds_Memberships(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	repos := NewRepositories(db)

	room := &models.Room{Kind: models.RoomKindGroup, Name: "讀書會"}
	members := []models.Membership{
		{UserID: 1, Role: models.RoleAdmin, JoinedAt: time.Now()},
		{UserID: 2, Role: models.RoleMember, JoinedAt: time.Now()},
		{UserID: 3, Role: models.RoleMember, JoinedAt: time.Now()},
	}
	req.NoError(repos.Room.CreateWithMembers(room, members))
	req.NotZero(room.ID)

	listed, err := repos.Membership.ListByRoom(room.ID)
	req.NoError(err)
	req.Len(listed, 3)
	req.Equal(models.RoleAdmin, listed[0].Role)
}

func Test_Duplicate_PairKey_Is_Rejected(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	repos := NewRepositories(db)

	pairKey := models.DirectPairKey(7, 3)
	first := &models.Room{Kind: models.RoomKindDirect, PairKey: &pairKey}
	req.NoError(repos.Room.CreateWithMembers(first, []models.Membership{
		{UserID: 3, Role: models.RoleMember, JoinedAt: time.Now()},
		{UserID: 7, Role: models.RoleMember, JoinedAt: time.Now()},
	}))

	// When 輸掉競賽的一方嘗試建立同一對用戶的私聊房間
	second := &models.Room{Kind: models.RoomKindDirect, PairKey: &pairKey}
	err := repos.Room.CreateWithMembers(second, []models.Membership{
		{UserID: 3, Role: models.RoleMember, JoinedAt: time.Now()},
		{UserID: 7, Role: models.RoleMember, JoinedAt: time.Now()},
	})

	// Then 唯一索引擋下重複建立，整筆交易回滾
	req.ErrorIs(err, gorm.ErrDuplicatedKey)

	winner, findErr := repos.Room.FindByPairKey(pairKey)
	req.NoError(findErr)
	req.Equal(first.ID, winner.ID)
}

func Test_Group_Rooms_Have_No_PairKey_Conflict(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	repos := NewRepositories(db)

	// 群聊房間的 PairKey 為 NULL，彼此之間不會衝突
	for i := 0; i < 3; i++ {
		room := &models.Room{Kind: models.RoomKindGroup, Name: "group"}
		req.NoError(repos.Room.CreateWithMembers(room, []models.Membership{
			{UserID: uint(i + 1), Role: models.RoleAdmin, JoinedAt: time.Now()},
		}))
	}
}

func Test_HardDelete_Removes_Room(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	repos := NewRepositories(db)

	room := &models.Room{Kind: models.RoomKindGroup, Name: "短命房間"}
	req.NoError(repos.Room.CreateWithMembers(room, []models.Membership{
		{UserID: 1, Role: models.RoleAdmin, JoinedAt: time.Now()},
	}))

	req.NoError(repos.Room.HardDelete(room.ID))

	_, err := repos.Room.FindByID(room.ID)
	req.ErrorIs(err, gorm.ErrRecordNotFound)
}

func Test_Membership_Unique_Per_Room_And_User(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	repos := NewRepositories(db)

	room := &models.Room{Kind: models.RoomKindGroup, Name: "社團"}
	req.NoError(repos.Room.CreateWithMembers(room, []models.Membership{
		{UserID: 1, Role: models.RoleAdmin, JoinedAt: time.Now()},
	}))

	err := repos.Membership.Create(&models.Membership{
		RoomID: room.ID, UserID: 1, Role: models.RoleMember, JoinedAt: time.Now(),
	})
	req.ErrorIs(err, gorm.ErrDuplicatedKey)

	// 離開後重新加入不會被舊紀錄擋住
	req.NoError(repos.Membership.Delete(room.ID, 1))
	req.NoError(repos.Membership.Create(&models.Membership{
		RoomID: room.ID, UserID: 1, Role: models.RoleMember, JoinedAt: time.Now(),
	}))
}
