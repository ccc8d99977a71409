package service

import (
	"sync"
	"testing"

	"campus_chat/internal/apperrors"
	"campus_chat/internal/models"

	"github.com/stretchr/testify/require"
)

func Test_FindOrCreateDirectRoom_Same_Room_Both_Directions(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	alice, bob := ids[0], ids[1]

	// When 兩邊各發起一次私聊
	room1, err := services.Room.FindOrCreateDirectRoom(alice, bob)
	req.NoError(err)
	room2, err := services.Room.FindOrCreateDirectRoom(bob, alice)
	req.NoError(err)

	// Then 不論誰發起都收斂到同一個房間
	req.Equal(room1.ID, room2.ID)
	req.Equal(models.RoomKindDirect, room1.Kind)

	// 兩人都已是成員
	members, err := services.Membership.ListMembers(room1.ID)
	req.NoError(err)
	req.Len(members, 2)
}

func Test_FindOrCreateDirectRoom_Returns_Winner_After_Conflict(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	alice, bob := ids[0], ids[1]

	// Given 贏家已經建好房間
	winner, err := services.Room.FindOrCreateDirectRoom(alice, bob)
	req.NoError(err)

	// When 重複呼叫多次
	for i := 0; i < 5; i++ {
		room, err := services.Room.FindOrCreateDirectRoom(alice, bob)
		req.NoError(err)
		req.Equal(winner.ID, room.ID)
	}
}

func Test_FindOrCreateDirectRoom_Concurrent_Callers_Converge(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob")
	alice, bob := ids[0], ids[1]

	// When 兩邊同時發起多次私聊，輸掉建立競賽的呼叫方會撞到
	// PairKey 唯一索引，重查後拿到贏家的房間
	const callers = 8
	var wg sync.WaitGroup
	rooms := make(chan *models.Room, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var room *models.Room
			var err error
			if n%2 == 0 {
				room, err = services.Room.FindOrCreateDirectRoom(alice, bob)
			} else {
				room, err = services.Room.FindOrCreateDirectRoom(bob, alice)
			}
			errs <- err
			rooms <- room
		}(i)
	}
	wg.Wait()
	close(errs)
	close(rooms)

	for err := range errs {
		req.NoError(err)
	}

	// Then 所有呼叫方收斂到同一個私聊房間
	var winnerID uint
	roomIDs := make(map[uint]bool)
	for room := range rooms {
		req.NotNil(room)
		req.Equal(models.RoomKindDirect, room.Kind)
		roomIDs[room.ID] = true
		winnerID = room.ID
	}
	req.Len(roomIDs, 1)

	members, err := services.Membership.ListMembers(winnerID)
	req.NoError(err)
	req.Len(members, 2)
}

func Test_FindOrCreateDirectRoom_With_Self_Is_Invalid(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice")

	_, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[0])
	req.ErrorIs(err, apperrors.ErrInvalidArgument)
}

func Test_FindOrCreateDirectRoom_Unknown_User(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice")

	_, err := services.Room.FindOrCreateDirectRoom(ids[0], 999)
	req.ErrorIs(err, apperrors.ErrNotFound)
}

func Test_CreateGroupRoom_Seeds_Creator_As_Admin(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob", "clara")

	room, err := services.Room.CreateGroupRoom(ids[0], "讀書會", []uint{ids[1], ids[2]})
	req.NoError(err)
	req.Equal(models.RoomKindGroup, room.Kind)

	role, err := services.Membership.RoleOf(room.ID, ids[0])
	req.NoError(err)
	req.Equal(models.RoleAdmin, role)

	role, err = services.Membership.RoleOf(room.ID, ids[1])
	req.NoError(err)
	req.Equal(models.RoleMember, role)
}

func Test_CreateGroupRoom_Requires_Other_Members(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice")

	// 名單為空
	_, err := services.Room.CreateGroupRoom(ids[0], "獨角戲", nil)
	req.ErrorIs(err, apperrors.ErrInvalidArgument)

	// 名單只有建立者自己
	_, err = services.Room.CreateGroupRoom(ids[0], "獨角戲", []uint{ids[0]})
	req.ErrorIs(err, apperrors.ErrInvalidArgument)
}

func Test_GetRoom_Missing_Is_NotFound(t *testing.T) {
	req := require.New(t)
	services, _ := newTestServices(t)

	_, err := services.Room.GetRoom(12345)
	req.ErrorIs(err, apperrors.ErrNotFound)
}

func Test_ListRoomsForUser_Only_Joined_Rooms(t *testing.T) {
	req := require.New(t)
	services, repos := newTestServices(t)
	ids := createUsers(t, repos, "alice", "bob", "carol")

	direct, err := services.Room.FindOrCreateDirectRoom(ids[0], ids[1])
	req.NoError(err)
	_, err = services.Room.CreateGroupRoom(ids[1], "不關alice的事", []uint{ids[2]})
	req.NoError(err)

	rooms, err := services.Room.ListRoomsForUser(ids[0])
	req.NoError(err)
	req.Len(rooms, 1)
	req.Equal(direct.ID, rooms[0].ID)

	// 沒加入任何房間的用戶拿到空清單而不是錯誤
	none := createUsers(t, repos, "dave")
	rooms, err = services.Room.ListRoomsForUser(none[0])
	req.NoError(err)
	req.Empty(rooms)
}
