package share

import (
	"testing"

	"scena-market/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		pct      models.Percent
		wantPart int64
		wantRest int64
	}{
		{name: "десять процентов от 20", total: 20, pct: 10, wantPart: 2, wantRest: 18},
		{name: "пять процентов от 20", total: 20, pct: 5, wantPart: 1, wantRest: 19},
		{name: "округление вниз", total: 99, pct: 10, wantPart: 9, wantRest: 90},
		{name: "нулевая сумма", total: 0, pct: 50, wantPart: 0, wantRest: 0},
		{name: "сто процентов", total: 271, pct: 100, wantPart: 271, wantRest: 0},
		{name: "ноль процентов", total: 271, pct: 0, wantPart: 0, wantRest: 271},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, rest, err := Split(tt.total, tt.pct)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantPart, part)
			assert.Equal(t, tt.wantRest, rest)
			assert.Equal(t, tt.total, part+rest)
		})
	}
}

func TestSplitОтрицательнаяСумма(t *testing.T) {
	_, _, err := Split(-1, 10)
	assert.True(t, models.IsValidation(err))

	_, _, err = SplitBps(-1, 100)
	assert.True(t, models.IsValidation(err))
}

func TestSplitBps(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		bps      models.BasisPoints
		wantPart int64
	}{
		{name: "тысяча бп от 1000", total: 1000, bps: 1000, wantPart: 100},
		{name: "треть с округлением вниз", total: 100, bps: 3333, wantPart: 33},
		{name: "единица и малая доля", total: 1, bps: 9999, wantPart: 0},
		{name: "полные десять тысяч", total: 271, bps: 10000, wantPart: 271},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, rest, err := SplitBps(tt.total, tt.bps)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantPart, part)
			assert.Equal(t, tt.total, part+rest)
		})
	}
}

func profileOf(shares ...models.ProfileShare) *models.DistributionProfile {
	return &models.DistributionProfile{ID: 1, Name: "test", Shares: shares}
}

func TestSplitAcrossProfileТочнаяСумма(t *testing.T) {
	profile := profileOf(
		models.ProfileShare{RecipientID: 10, Share: 3333},
		models.ProfileShare{RecipientID: 11, Share: 3333},
		models.ProfileShare{RecipientID: 12, Share: 3334},
	)

	// Суммы из спецификации свойства: пыль не теряется и не создается
	for _, total := range []int64{0, 1, 3, 99, 271, 1000, 9999, 12345} {
		payouts, err := SplitAcrossProfile(total, profile, 1)
		assert.NoError(t, err)
		assert.Equal(t, total, Sum(payouts), "сумма начислений должна равняться исходной сумме для %d", total)
	}
}

func TestSplitAcrossProfileПыльСборномуПолучателю(t *testing.T) {
	profile := profileOf(
		models.ProfileShare{RecipientID: 10, Share: 5000},
		models.ProfileShare{RecipientID: 11, Share: 5000},
	)

	// 271: по 135 каждому, 1 единица пыли уходит сборному получателю
	payouts, err := SplitAcrossProfile(271, profile, 99)
	assert.NoError(t, err)
	assert.Len(t, payouts, 3)
	assert.Equal(t, int64(135), payouts[0].Amount)
	assert.Equal(t, int64(135), payouts[1].Amount)
	assert.Equal(t, models.Payout{AccountID: 99, Amount: 1}, payouts[2])
}

func TestSplitAcrossProfileСборныйВнутриПрофиля(t *testing.T) {
	profile := profileOf(
		models.ProfileShare{RecipientID: 99, Share: 5000},
		models.ProfileShare{RecipientID: 11, Share: 5000},
	)

	// Пыль добавляется к существующей доле сборного получателя
	payouts, err := SplitAcrossProfile(271, profile, 99)
	assert.NoError(t, err)
	assert.Len(t, payouts, 2)
	assert.Equal(t, int64(136), payouts[0].Amount)
	assert.Equal(t, int64(135), payouts[1].Amount)
	assert.Equal(t, int64(271), Sum(payouts))
}

func TestSplitAcrossProfileЕдинственныйПолучатель(t *testing.T) {
	profile := profileOf(models.ProfileShare{RecipientID: 7, Share: 10000})

	payouts, err := SplitAcrossProfile(17, profile, 1)
	assert.NoError(t, err)
	assert.Len(t, payouts, 1)
	assert.Equal(t, models.Payout{AccountID: 7, Amount: 17}, payouts[0])
}

func TestSplitAcrossProfileНевалидныйПрофиль(t *testing.T) {
	tests := []struct {
		name   string
		shares []models.ProfileShare
	}{
		{name: "пустой список", shares: nil},
		{name: "сумма меньше 10000", shares: []models.ProfileShare{{RecipientID: 1, Share: 9999}}},
		{name: "сумма больше 10000", shares: []models.ProfileShare{
			{RecipientID: 1, Share: 6000},
			{RecipientID: 2, Share: 6000},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitAcrossProfile(100, profileOf(tt.shares...), 1)
			assert.Error(t, err)
		})
	}
}

func TestМногоМелкихПолучателей(t *testing.T) {
	// 100 получателей по 100 бп: при сумме 7 каждому достается 0,
	// вся сумма уходит пылью сборному получателю
	shares := make([]models.ProfileShare, 100)
	for i := range shares {
		shares[i] = models.ProfileShare{RecipientID: int64(i + 10), Share: 100}
	}
	payouts, err := SplitAcrossProfile(7, profileOf(shares...), 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), Sum(payouts))
	last := payouts[len(payouts)-1]
	assert.Equal(t, models.Payout{AccountID: 5, Amount: 7}, last)
}
