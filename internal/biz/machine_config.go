package biz

import (
	"slot4d/internal/biz/game"
	"slot4d/internal/biz/prize"
	"slot4d/internal/conf"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/shopspring/decimal"
)

// MachineConfig 将 game 配置段转为机器参数，未填写的字段保持默认值
func MachineConfig(c *conf.Game) (game.Config, error) {
	mc := game.DefaultConfig()
	if c == nil {
		return mc, nil
	}

	kd := &mc.KillDigit
	kd.Enabled = c.KillEnabled
	kd.Automated = c.KillAutomated
	setFloat(&kd.TargetRTP, c.TargetRtp)
	setFloat(&kd.Deviation, c.Deviation)
	setInt(&kd.CycleSpins, c.CycleSpins)
	setInt(&kd.MinSpinsForAdjust, c.MinSpinsForAdjust)
	setInt(&kd.RecentDigitsMemory, c.RecentDigitsMemory)
	setFloat(&kd.BigWinThreshold, c.BigWinThreshold)
	if err := setKillCount(&kd.MaxKillDigits, c.MaxKillDigits, "max_kill_digits"); err != nil {
		return mc, err
	}
	if c.InitialKillDigits == nil {
		kd.InitialKillDigits = min(kd.InitialKillDigits, kd.MaxKillDigits)
	} else if err := setKillCount(&kd.InitialKillDigits, c.InitialKillDigits, "initial_kill_digits"); err != nil {
		return mc, err
	}
	if kd.InitialKillDigits > kd.MaxKillDigits {
		return mc, errors.Newf(400, "INVALID_GAME_CONFIG", "initial_kill_digits %d exceeds max_kill_digits %d", kd.InitialKillDigits, kd.MaxKillDigits)
	}

	pc := &mc.Prize
	setInt(&pc.SpecialCount, c.SpecialCount)
	setInt(&pc.ConsolationCount, c.ConsolationCount)
	setInt(&pc.RefreshEvery, c.RefreshEvery)
	if c.JackpotChance < 0 || c.JackpotChance > 100 {
		return mc, prize.ErrInvalidChance
	}
	setFloat(&pc.DefaultChance, c.JackpotChance)

	mc.ApplyKillToJackpot = c.ApplyKillToJackpot
	if c.StartingCredit > 0 {
		mc.StartingCredit = decimal.NewFromFloat(c.StartingCredit)
	}
	if c.TopUpAmount > 0 {
		mc.TopUpAmount = decimal.NewFromFloat(c.TopUpAmount)
	}
	mc.AutoSpinPause = c.AutoSpinPause.OrDefault(mc.AutoSpinPause)

	if p := c.Paytable; p != nil {
		if p.TwoDigit > 0 {
			mc.Paytable.TwoDigit = decimal.NewFromFloat(p.TwoDigit)
		}
		if p.ThreeDigit > 0 {
			mc.Paytable.ThreeDigit = decimal.NewFromFloat(p.ThreeDigit)
		}
		if len(p.Bonus) > 0 {
			bonus := make(map[prize.Category]decimal.Decimal, len(p.Bonus))
			for name, v := range p.Bonus {
				cat, ok := prize.ParseCategory(name)
				if !ok {
					return mc, errors.Newf(400, "INVALID_GAME_CONFIG", "unknown paytable bonus category %q", name)
				}
				bonus[cat] = decimal.NewFromFloat(v)
			}
			mc.Paytable.Bonus = bonus
		}
	}
	return mc, nil
}

func setInt(dst *int, v int32) {
	if v > 0 {
		*dst = int(v)
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// setKillCount 未配置时保持默认；显式配置必须在 0..9 之间
func setKillCount(dst *int, v *int32, name string) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 9 {
		return errors.Newf(400, "INVALID_GAME_CONFIG", "%s %d out of range 0..9", name, *v)
	}
	*dst = int(*v)
	return nil
}
