/**
 * internal/config/merge.go
 * 工具选项递归合并模块
 *
 * 功能：
 * - 将默认选项递归合并到用户覆盖中
 * - 用户已设置的值永远优先
 * - 嵌套对象逐键合并，数组和标量整体回退
 */

package config

// Merge 将 defaults 中缺失的键递归补充到 user 中并返回 user
//
// 语义：
//   - user 为 nil 时直接返回 defaults（共享实例，调用方不得修改返回值）
//   - 否则原地修改并返回 user：defaults 中的键在 user 缺失时赋值；
//     两边都是 map 时递归合并；其余情况保留 user 的值
//   - 数组不做逐元素合并，只作为缺失键的整体回退值
//   - 不做深拷贝，不检测环（defaults 为程序内常量，约定无环）
//
// 已知限制：user 中存在环引用时会无限递归，不做处理
func Merge(user, defaults map[string]any) map[string]any {
	if user == nil {
		return defaults
	}

	for key, defVal := range defaults {
		userVal, exists := user[key]
		if !exists || userVal == nil {
			user[key] = defVal
			continue
		}

		// 两边都是嵌套对象时逐键递归，不整体替换
		userMap, userIsMap := userVal.(map[string]any)
		defMap, defIsMap := defVal.(map[string]any)
		if userIsMap && defIsMap {
			user[key] = Merge(userMap, defMap)
		}
	}

	return user
}
